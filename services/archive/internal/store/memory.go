package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/cinephilia/internal/movie"
)

// Memory is a process-local MovieStore for development and tests.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]movie.Record
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]movie.Record)}
}

func (m *Memory) List(_ context.Context, limit, skip int) ([]movie.Record, error) {
	limit, skip = normalizePage(limit, skip)

	m.mu.RLock()
	all := make([]movie.Record, 0, len(m.byID))
	for _, r := range m.byID {
		all = append(all, r)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].WatchedDate != all[j].WatchedDate {
			return all[i].WatchedDate > all[j].WatchedDate
		}
		return all[i].ID < all[j].ID
	})
	if skip >= len(all) {
		return []movie.Record{}, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) Upsert(_ context.Context, recs []movie.Record) (int, error) {
	recs = upsertable(recs)
	m.mu.Lock()
	for _, r := range recs {
		m.byID[r.ID] = r
	}
	m.mu.Unlock()
	return len(recs), nil
}

func (m *Memory) EnsureIndex(context.Context) (string, error) { return "id_1", nil }
func (m *Memory) Ping(context.Context) error                 { return nil }
func (m *Memory) Close(context.Context) error                { return nil }
