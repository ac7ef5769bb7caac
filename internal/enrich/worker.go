package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/cinephilia/internal/kv"
	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/relay"
)

const (
	DefaultPosterQuota = 5
	DefaultDetailQuota = 3
	DefaultTimeout     = 8 * time.Second
)

// Options configures a Worker. Zero values take the defaults.
type Options struct {
	Fetcher Fetcher
	Store   kv.Store
	Log     *zap.Logger
	Metrics *Metrics
	Limiter *Limiter

	// Quota caps page fetches per Run. Cache hits do not count.
	Quota   int
	Timeout time.Duration
	// EmptyResultTTL lets empty cache entries be retried after this long.
	// Zero keeps them forever.
	EmptyResultTTL time.Duration
	Now            func() time.Time
}

// Worker scans a record list, serves what it can from its cache, fetches
// up to Quota pages concurrently and returns sparse patches. It never
// returns an error: failures are logged and cached as empty results.
type Worker struct {
	name     string
	cacheKey string
	opts     Options

	wants func(movie.Record) bool
	patch func(movie.Record, Result) movie.Patch
	keep  func(Result) Result
}

// NewPosterWorker fills empty posters (and backdrops) from og:image.
func NewPosterWorker(opts Options) *Worker {
	if opts.Quota <= 0 {
		opts.Quota = DefaultPosterQuota
	}
	return newWorker("poster", PosterCacheKey, opts,
		func(r movie.Record) bool { return r.Poster == "" && r.HasDetailPage() },
		func(r movie.Record, res Result) movie.Patch {
			p := movie.Patch{ID: r.ID, Poster: res.Poster}
			if r.Backdrop == "" {
				p.Backdrop = res.Poster
			}
			return p
		},
		func(res Result) Result { return Result{Poster: res.Poster} },
	)
}

// NewDetailWorker fills empty reviews, and ratings when found.
func NewDetailWorker(opts Options) *Worker {
	if opts.Quota <= 0 {
		opts.Quota = DefaultDetailQuota
	}
	return newWorker("detail", DetailsCacheKey, opts,
		func(r movie.Record) bool { return r.Review == "" && r.HasDetailPage() },
		func(r movie.Record, res Result) movie.Patch {
			return movie.Patch{ID: r.ID, Review: res.Review, Rating: res.Rating}
		},
		func(res Result) Result { return Result{Review: res.Review, Rating: res.Rating} },
	)
}

func newWorker(name, key string, opts Options, wants func(movie.Record) bool,
	patch func(movie.Record, Result) movie.Patch, keep func(Result) Result) *Worker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = kv.NewMemory()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{name: name, cacheKey: key, opts: opts, wants: wants, patch: patch, keep: keep}
}

func (w *Worker) Name() string { return w.name }

type pending struct {
	rec movie.Record
	res Result
	err error
}

// Run returns the patches for records, in list order.
func (w *Worker) Run(ctx context.Context, records []movie.Record) []movie.Patch {
	log := w.opts.Log.With(zap.String("worker", w.name))
	now := w.opts.Now()
	cache := loadEntries(ctx, w.opts.Store, w.cacheKey, log)

	patches := make([]movie.Patch, 0)
	var todo []*pending
	queued := make(map[string]struct{})

	for _, r := range records {
		if !w.wants(r) {
			continue
		}
		if e, ok := cache[r.ID]; ok && !e.expired(w.opts.EmptyResultTTL, now) {
			if p := w.patch(r, e.Result); !p.Empty() {
				patches = append(patches, p)
				w.opts.Metrics.patch(w.name, "cache")
			}
			continue
		}
		if _, ok := queued[r.ID]; ok || len(todo) >= w.opts.Quota {
			continue
		}
		queued[r.ID] = struct{}{}
		todo = append(todo, &pending{rec: r})
	}

	if len(todo) == 0 || w.opts.Fetcher == nil {
		return patches
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Quota)
	for _, p := range todo {
		g.Go(func() error {
			if err := w.opts.Limiter.Wait(gctx); err != nil {
				p.err = err
				return nil
			}
			fctx, cancel := context.WithTimeout(gctx, w.opts.Timeout)
			defer cancel()
			res, err := w.opts.Fetcher.FetchEnrichment(fctx, p.rec.ID)
			p.res, p.err = w.keep(res), err
			return nil
		})
	}
	_ = g.Wait()

	fetchedAt := w.opts.Now()
	for _, p := range todo {
		switch {
		case ctx.Err() != nil:
			// Shutting down: leave the page uncached so the next run retries.
			continue
		case relay.Transient(p.err):
			// Never reached the page, or was told to back off.
			w.opts.Metrics.fetch(w.name, "skipped")
			log.Debug("enrichment fetch deferred", zap.String("url", p.rec.ID), zap.Error(p.err))
			continue
		case p.err != nil:
			w.opts.Metrics.fetch(w.name, "error")
			log.Warn("enrichment fetch failed", zap.String("url", p.rec.ID), zap.Error(p.err))
		case p.res.Empty():
			w.opts.Metrics.fetch(w.name, "empty")
			log.Debug("enrichment found nothing", zap.String("url", p.rec.ID))
		default:
			w.opts.Metrics.fetch(w.name, "ok")
		}
		res := p.res
		if p.err != nil {
			res = Result{}
		}
		cache[p.rec.ID] = Entry{Result: res, FetchedAt: fetchedAt}
		if pt := w.patch(p.rec, res); !pt.Empty() {
			patches = append(patches, pt)
			w.opts.Metrics.patch(w.name, "fetch")
		}
	}
	saveEntries(context.WithoutCancel(ctx), w.opts.Store, w.cacheKey, cache, log)

	return orderPatches(records, patches)
}

func orderPatches(records []movie.Record, patches []movie.Patch) []movie.Patch {
	if len(patches) < 2 {
		return patches
	}
	byID := make(map[string]movie.Patch, len(patches))
	for _, p := range patches {
		byID[p.ID] = p
	}
	out := make([]movie.Patch, 0, len(patches))
	for _, r := range records {
		if p, ok := byID[r.ID]; ok {
			out = append(out, p)
			delete(byID, r.ID)
		}
	}
	return out
}
