// Package history persists the merged movie set between runs.
package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/kv"
	"github.com/example/cinephilia/internal/letterboxd"
	"github.com/example/cinephilia/internal/movie"
)

// StorageKey is the kv key holding the cached set.
const StorageKey = "cinephilia_movie_history_v2"

// ExportLoader is the part of letterboxd.Source used here.
type ExportLoader interface {
	LoadExports(ctx context.Context) letterboxd.Exports
}

// Cache reads and writes the whole record set as one value.
type Cache struct {
	store kv.Store
	log   *zap.Logger
}

func New(store kv.Store, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{store: store, log: log}
}

// Load returns the cached set. Missing or unreadable data yields an empty
// list.
func (c *Cache) Load(ctx context.Context) []movie.Record {
	var recs []movie.Record
	ok, err := kv.GetJSON(ctx, c.store, StorageKey, &recs)
	if err != nil {
		c.log.Warn("movie history unreadable, starting empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	out := recs[:0]
	for _, r := range recs {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Save overwrites the cached set. Failures are logged.
func (c *Cache) Save(ctx context.Context, recs []movie.Record) {
	if recs == nil {
		recs = []movie.Record{}
	}
	if err := kv.SetJSON(ctx, c.store, StorageKey, recs); err != nil {
		c.log.Warn("save movie history failed", zap.Error(err))
	}
}

// LoadFromExports merges the four exports with the cached set, saves the
// result and returns it.
func (c *Cache) LoadFromExports(ctx context.Context, src ExportLoader) []movie.Record {
	ex := src.LoadExports(ctx)
	lists := append(ex.Lists(), c.Load(ctx))
	merged := movie.Merge(lists...)
	c.Save(ctx, merged)
	return merged
}

// MergeAndCache merges remote over existing, saves the result and returns
// it.
func (c *Cache) MergeAndCache(ctx context.Context, existing, remote []movie.Record) []movie.Record {
	merged := movie.Merge(existing, remote)
	c.Save(ctx, merged)
	return merged
}
