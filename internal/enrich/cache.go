package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/kv"
)

// Cache keys of the two workers.
const (
	PosterCacheKey  = "cinephilia-poster-cache-v1"
	DetailsCacheKey = "cinephilia-details-cache-v1"
)

// Entry is one cached page result. Empty results are cached too.
type Entry struct {
	Result
	FetchedAt time.Time `json:"fetchedAt"`
}

// expired reports whether an empty entry is old enough to retry. A zero
// ttl keeps empty entries forever.
func (e Entry) expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || !e.Empty() || e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) >= ttl
}

type entries map[string]Entry

func loadEntries(ctx context.Context, store kv.Store, key string, log *zap.Logger) entries {
	out := entries{}
	if _, err := kv.GetJSON(ctx, store, key, &out); err != nil {
		log.Warn("enrichment cache unreadable, starting empty", zap.String("cache", key), zap.Error(err))
		return entries{}
	}
	if out == nil {
		out = entries{}
	}
	return out
}

func saveEntries(ctx context.Context, store kv.Store, key string, e entries, log *zap.Logger) {
	if err := kv.SetJSON(ctx, store, key, e); err != nil {
		log.Warn("save enrichment cache failed", zap.String("cache", key), zap.Error(err))
	}
}
