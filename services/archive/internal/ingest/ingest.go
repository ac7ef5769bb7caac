// Package ingest folds Letterboxd sources into the archive store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/cinephilia/internal/letterboxd"
	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/services/archive/internal/store"
)

// mergeWindow bounds how many stored records are read back to merge with.
const mergeWindow = 5000

// ErrFeed wraps failures to fetch or parse the feed, as opposed to store
// failures.
var ErrFeed = errors.New("ingest: feed unavailable")

// FeedFetcher is satisfied by *letterboxd.Source.
type FeedFetcher interface {
	FetchFeed(ctx context.Context) ([]movie.Record, error)
}

// ExportLoader is satisfied by *letterboxd.Source.
type ExportLoader interface {
	LoadExports(ctx context.Context) letterboxd.Exports
}

// RefreshFromFeed fetches the feed, merges it over the stored records and
// upserts the records the feed touched.
func RefreshFromFeed(ctx context.Context, s store.MovieStore, feed FeedFetcher) (int, error) {
	items, err := feed.FetchFeed(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFeed, err)
	}
	return upsertMerged(ctx, s, items)
}

// ImportExports merges the four CSV exports and upserts the result.
func ImportExports(ctx context.Context, s store.MovieStore, src ExportLoader) (int, error) {
	ex := src.LoadExports(ctx)
	return upsertMerged(ctx, s, movie.Merge(ex.Lists()...))
}

func upsertMerged(ctx context.Context, s store.MovieStore, incoming []movie.Record) (int, error) {
	if len(incoming) == 0 {
		return 0, nil
	}
	stored, err := s.List(ctx, mergeWindow, 0)
	if err != nil {
		return 0, fmt.Errorf("read stored movies: %w", err)
	}

	touched := make(map[string]struct{}, len(incoming))
	for _, r := range incoming {
		touched[r.Key()] = struct{}{}
	}

	merged := movie.Merge(stored, incoming)
	out := merged[:0]
	for _, r := range merged {
		if _, ok := touched[r.Key()]; ok {
			out = append(out, r)
		}
	}
	return s.Upsert(ctx, out)
}
