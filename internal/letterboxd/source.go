package letterboxd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/cinephilia/internal/movie"
)

// Getter fetches a URL body. *relay.Chain satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Exports holds the records parsed from each CSV export.
type Exports struct {
	Reviews []movie.Record
	Watched []movie.Record
	Diary   []movie.Record
	Ratings []movie.Record
}

// Lists returns the exports in merge priority order, lowest first.
func (e Exports) Lists() [][]movie.Record {
	return [][]movie.Record{e.Reviews, e.Watched, e.Diary, e.Ratings}
}

func (e *Exports) set(kind Kind, recs []movie.Record) {
	switch kind {
	case KindReviews:
		e.Reviews = recs
	case KindWatched:
		e.Watched = recs
	case KindDiary:
		e.Diary = recs
	case KindRatings:
		e.Ratings = recs
	}
}

// Source loads the exports from a local directory or a base URL, and the
// feed from FeedURL.
type Source struct {
	// ExportDir is read when set; otherwise ExportBaseURL is fetched.
	ExportDir     string
	ExportBaseURL string
	FeedURL       string

	// Exports fetches remote CSVs; Feed fetches the RSS document, usually
	// through the relay chain.
	Exports Getter
	Feed    Getter

	Log *zap.Logger
	Now func() time.Time
}

func (s *Source) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// LoadExports reads the four exports concurrently. A missing or broken
// export contributes an empty list and a warning.
func (s *Source) LoadExports(ctx context.Context) Exports {
	results := make([][]movie.Record, len(Kinds))

	var g errgroup.Group
	for i, kind := range Kinds {
		g.Go(func() error {
			recs, err := s.loadExport(ctx, kind)
			if err != nil {
				s.log().Warn("letterboxd export unavailable",
					zap.String("source", string(kind)), zap.Error(err))
				recs = nil
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var out Exports
	for i, kind := range Kinds {
		out.set(kind, results[i])
	}
	return out
}

func (s *Source) loadExport(ctx context.Context, kind Kind) ([]movie.Record, error) {
	data, err := s.readExport(ctx, kind)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return RowsToRecords(rows, kind), nil
}

func (s *Source) readExport(ctx context.Context, kind Kind) ([]byte, error) {
	if s.ExportDir != "" {
		return os.ReadFile(filepath.Join(s.ExportDir, kind.FileName()))
	}
	if s.ExportBaseURL == "" || s.Exports == nil {
		return nil, fmt.Errorf("no export location configured")
	}
	return s.Exports.Get(ctx, s.exportURL(kind))
}

// exportURL appends a cache buster so intermediaries never serve a stale
// export.
func (s *Source) exportURL(kind Kind) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	u := strings.TrimRight(s.ExportBaseURL, "/") + "/" + kind.FileName()
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "t=" + strconv.FormatInt(now().UnixMilli(), 10)
}

// FetchFeed downloads and parses the RSS feed.
func (s *Source) FetchFeed(ctx context.Context) ([]movie.Record, error) {
	if s.FeedURL == "" {
		return nil, fmt.Errorf("no feed url configured")
	}
	if s.Feed == nil {
		return nil, fmt.Errorf("no feed getter configured")
	}
	data, err := s.Feed.Get(ctx, s.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return ParseFeed(data)
}

// LoadFeed is FetchFeed with the source-unavailable policy applied: errors
// are logged and yield an empty list.
func (s *Source) LoadFeed(ctx context.Context) []movie.Record {
	recs, err := s.FetchFeed(ctx)
	if err != nil {
		s.log().Warn("letterboxd feed unavailable", zap.String("source", "rss"), zap.Error(err))
		return nil
	}
	return recs
}
