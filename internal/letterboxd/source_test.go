package letterboxd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/cinephilia/internal/movie"
)

type stubGetter struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
	urls   []string
}

func (s *stubGetter) Get(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for prefix, body := range s.bodies {
		if strings.HasPrefix(url, prefix) {
			return []byte(body), nil
		}
	}
	return nil, errors.New("not found")
}

func writeExport(t *testing.T, dir string, kind Kind, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, kind.FileName()), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadExports_DirWithMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, KindReviews, "Name,Year,Rating,Review\nArrival,2016,4,Loved it\n")
	writeExport(t, dir, KindDiary, "Name,Year,Watched Date\nArrival,2016,2024-01-05\n")

	src := &Source{ExportDir: dir}
	ex := src.LoadExports(context.Background())

	if len(ex.Reviews) != 1 || len(ex.Diary) != 1 {
		t.Fatalf("unexpected exports: %+v", ex)
	}
	if ex.Watched != nil || ex.Ratings != nil {
		t.Fatalf("missing exports should be empty: %+v", ex)
	}

	merged := movie.Merge(ex.Lists()...)
	if len(merged) != 1 {
		t.Fatalf("expected one merged record, got %d", len(merged))
	}
	got := merged[0]
	if got.Title != "Arrival" || got.Year != 2016 || got.Rating != 4 ||
		got.Review != "Loved it" || got.WatchedDate != "2024-01-05" {
		t.Fatalf("unexpected merged record: %+v", got)
	}
}

func TestLoadExports_RemoteCacheBuster(t *testing.T) {
	getter := &stubGetter{bodies: map[string]string{
		"https://site/exports/ratings.csv": "Name,Year,Rating,Date\nHeat,1995,5,2020-01-01\n",
	}}
	src := &Source{
		ExportBaseURL: "https://site/exports/",
		Exports:       getter,
		Now:           func() time.Time { return time.UnixMilli(42) },
	}
	ex := src.LoadExports(context.Background())
	if len(ex.Ratings) != 1 || ex.Ratings[0].Rating != 5 {
		t.Fatalf("unexpected ratings: %+v", ex.Ratings)
	}
	if len(getter.urls) != len(Kinds) {
		t.Fatalf("expected %d fetches, got %v", len(Kinds), getter.urls)
	}
	for _, u := range getter.urls {
		if !strings.HasSuffix(u, "?t=42") {
			t.Fatalf("missing cache buster on %q", u)
		}
	}
}

func TestLoadFeed_FailureYieldsEmpty(t *testing.T) {
	src := &Source{FeedURL: "https://letterboxd.com/x/rss/", Feed: &stubGetter{err: errors.New("offline")}}
	if recs := src.LoadFeed(context.Background()); recs != nil {
		t.Fatalf("expected nil records, got %v", recs)
	}
	if _, err := src.FetchFeed(context.Background()); err == nil {
		t.Fatal("expected FetchFeed to report the error")
	}
}

func TestLoadFeed_OK(t *testing.T) {
	src := &Source{
		FeedURL: "https://letterboxd.com/x/rss/",
		Feed:    &stubGetter{bodies: map[string]string{"https://letterboxd.com/x/rss/": sampleFeed}},
	}
	recs := src.LoadFeed(context.Background())
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}
