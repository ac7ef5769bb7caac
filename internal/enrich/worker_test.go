package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/kv"
	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/relay"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]Result
	errs    map[string]error
	block   bool
}

func (s *stubFetcher) FetchEnrichment(ctx context.Context, uri string) (Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, uri)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	if err := s.errs[uri]; err != nil {
		return Result{}, err
	}
	return s.results[uri], nil
}

func (s *stubFetcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func filmURL(i int) string { return fmt.Sprintf("https://letterboxd.com/film/f%d/", i) }

func TestPosterWorker_QuotaAndCache(t *testing.T) {
	var recs []movie.Record
	results := map[string]Result{}
	for i := 0; i < 7; i++ {
		recs = append(recs, movie.Record{ID: filmURL(i), Title: fmt.Sprint("F", i)})
		results[filmURL(i)] = Result{Poster: fmt.Sprintf("https://img/%d.jpg", i), Review: "ignored"}
	}
	recs = append(recs,
		movie.Record{ID: "Local-unknown", Title: "Local"},
		movie.Record{ID: filmURL(99), Title: "Has poster", Poster: "p.jpg"},
	)

	store := kv.NewMemory()
	fetcher := &stubFetcher{results: results}
	w := NewPosterWorker(Options{Fetcher: fetcher, Store: store})

	patches := w.Run(context.Background(), recs)
	if fetcher.count() != DefaultPosterQuota {
		t.Fatalf("expected %d fetches, got %d", DefaultPosterQuota, fetcher.count())
	}
	if len(patches) != DefaultPosterQuota {
		t.Fatalf("expected %d patches, got %+v", DefaultPosterQuota, patches)
	}
	for i, p := range patches {
		if p.ID != filmURL(i) {
			t.Fatalf("patches out of list order: %+v", patches)
		}
		if p.Poster == "" || p.Backdrop != p.Poster || p.Review != "" {
			t.Fatalf("unexpected patch %+v", p)
		}
	}

	// Second run: five cache hits, the remaining two fetched.
	fetcher2 := &stubFetcher{results: results}
	w2 := NewPosterWorker(Options{Fetcher: fetcher2, Store: store})
	patches = w2.Run(context.Background(), recs)
	if fetcher2.count() != 2 {
		t.Fatalf("expected 2 fetches, got %v", fetcher2.calls)
	}
	if len(patches) != 7 {
		t.Fatalf("expected 7 patches, got %d", len(patches))
	}
}

func TestPosterWorker_KeepsExistingBackdrop(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]Result{filmURL(1): {Poster: "new.jpg"}}}
	w := NewPosterWorker(Options{Fetcher: fetcher})
	patches := w.Run(context.Background(), []movie.Record{{ID: filmURL(1), Title: "A", Backdrop: "bd.jpg"}})
	if len(patches) != 1 || patches[0].Backdrop != "" || patches[0].Poster != "new.jpg" {
		t.Fatalf("unexpected patches %+v", patches)
	}
}

func TestWorker_EmptyAndFailedResultsAreCached(t *testing.T) {
	store := kv.NewMemory()
	recs := []movie.Record{{ID: filmURL(1), Title: "A"}, {ID: filmURL(2), Title: "B"}}
	fetcher := &stubFetcher{errs: map[string]error{filmURL(2): errors.New("HTTP 500")}}

	w := NewDetailWorker(Options{Fetcher: fetcher, Store: store})
	if patches := w.Run(context.Background(), recs); len(patches) != 0 {
		t.Fatalf("expected no patches, got %+v", patches)
	}

	again := &stubFetcher{}
	w = NewDetailWorker(Options{Fetcher: again, Store: store})
	w.Run(context.Background(), recs)
	if again.count() != 0 {
		t.Fatalf("cached empty results should suppress refetch, got %v", again.calls)
	}
}

func TestWorker_EmptyResultTTL(t *testing.T) {
	store := kv.NewMemory()
	recs := []movie.Record{{ID: filmURL(1), Title: "A"}}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w := NewDetailWorker(Options{Fetcher: &stubFetcher{}, Store: store, EmptyResultTTL: time.Hour,
		Now: func() time.Time { return now }})
	w.Run(context.Background(), recs)

	later := &stubFetcher{results: map[string]Result{filmURL(1): {Review: "Finally."}}}
	w = NewDetailWorker(Options{Fetcher: later, Store: store, EmptyResultTTL: time.Hour,
		Now: func() time.Time { return now.Add(30 * time.Minute) }})
	if got := w.Run(context.Background(), recs); len(got) != 0 || later.count() != 0 {
		t.Fatalf("entry should still be fresh: %+v %v", got, later.calls)
	}

	w = NewDetailWorker(Options{Fetcher: later, Store: store, EmptyResultTTL: time.Hour,
		Now: func() time.Time { return now.Add(2 * time.Hour) }})
	got := w.Run(context.Background(), recs)
	if later.count() != 1 || len(got) != 1 || got[0].Review != "Finally." {
		t.Fatalf("expired empty entry should be refetched: %+v %v", got, later.calls)
	}
}

func TestDetailWorker_Candidates(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]Result{
		filmURL(1): {Review: "Fetched review", Rating: 4.5, Poster: "ignored.jpg"},
	}}
	recs := []movie.Record{
		{ID: filmURL(1), Title: "A"},
		{ID: filmURL(2), Title: "B", Review: "Already here"},
		{ID: "C-2024-01-01", Title: "C"},
	}
	w := NewDetailWorker(Options{Fetcher: fetcher})
	patches := w.Run(context.Background(), recs)
	if fetcher.count() != 1 {
		t.Fatalf("expected only the review-less URI record fetched, got %v", fetcher.calls)
	}
	if len(patches) != 1 || patches[0] != (movie.Patch{ID: filmURL(1), Review: "Fetched review", Rating: 4.5}) {
		t.Fatalf("unexpected patches %+v", patches)
	}
}

func TestWorker_TimeoutIsSwallowed(t *testing.T) {
	fetcher := &stubFetcher{block: true}
	w := NewPosterWorker(Options{Fetcher: fetcher, Timeout: 10 * time.Millisecond})
	start := time.Now()
	patches := w.Run(context.Background(), []movie.Record{{ID: filmURL(1), Title: "A"}})
	if len(patches) != 0 {
		t.Fatalf("expected no patches, got %+v", patches)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestWorker_PatchesApplyWithoutClobbering(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]Result{filmURL(1): {Poster: "late.jpg"}}}
	original := []movie.Record{{ID: filmURL(1), Title: "A"}}
	patches := NewPosterWorker(Options{Fetcher: fetcher}).Run(context.Background(), original)

	current := []movie.Record{{ID: filmURL(1), Title: "A", Poster: "fresh.jpg"}}
	out, changed := movie.ApplyPatches(current, patches)
	if changed != 1 {
		t.Fatalf("expected backdrop fill only, changed=%d", changed)
	}
	if out[0].Poster != "fresh.jpg" || out[0].Backdrop != "late.jpg" {
		t.Fatalf("unexpected record %+v", out[0])
	}
}

func TestLimiter(t *testing.T) {
	var nilLimiter *Limiter
	if err := nilLimiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter should not block: %v", err)
	}
	if NewRPS(0) != nil {
		t.Fatal("rps 0 should disable pacing")
	}
	l := NewRPS(1000)
	defer l.Stop()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewRPS(0.001)
	defer slow.Stop()
	if err := slow.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWorker_RateLimitedAndBreakerSkipsAreNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	chain := relay.New(relay.Options{Template: relay.TemplateDirect, BreakerFailures: 2, BreakerCooldown: time.Hour})
	store := kv.NewMemory()
	recs := make([]movie.Record, 0, 10)
	for i := 0; i < 10; i++ {
		recs = append(recs, movie.Record{ID: fmt.Sprintf("%s/film/f%d/", srv.URL, i), Title: fmt.Sprint("F", i)})
	}

	w := NewPosterWorker(Options{Fetcher: PageFetcher{Getter: chain}, Store: store})
	w.Run(context.Background(), recs[:5])
	w.Run(context.Background(), recs[5:])

	if n := hits.Load(); n == 0 || n > 10 {
		t.Fatalf("unexpected server hits %d", n)
	}
	if got := loadEntries(context.Background(), store, PosterCacheKey, zap.NewNop()); len(got) != 0 {
		t.Fatalf("throttled or skipped pages must stay uncached, got %d entries", len(got))
	}

	// The pages are retried once the relay recovers.
	ok := &stubFetcher{results: map[string]Result{recs[0].ID: {Poster: "https://img/0.jpg"}}}
	w = NewPosterWorker(Options{Fetcher: ok, Store: store})
	if got := w.Run(context.Background(), recs[:1]); len(got) != 1 || got[0].Poster != "https://img/0.jpg" {
		t.Fatalf("expected a retry to patch the poster, got %+v", got)
	}
}
