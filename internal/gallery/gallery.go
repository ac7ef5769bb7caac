// Package gallery runs the refresh cycle that keeps the displayed movie set
// current: backend API, then exports and cache, then the RSS feed, with
// enrichment patches folded in as they arrive.
package gallery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/example/cinephilia/internal/history"
	"github.com/example/cinephilia/internal/movie"
)

// State is the phase of the current refresh cycle.
type State string

const (
	StateIdle               State = "idle"
	StateLoadingCache       State = "loading-cache"
	StateLoadingRemote      State = "loading-remote"
	StateEnrichingCacheTail State = "enriching-cache-tail"
	StateMergingRemote      State = "merging-remote"
	StateEnrichingMerged    State = "enriching-merged"
	StateSettled            State = "settled"
)

const (
	DefaultInterval = 15 * time.Minute
	// DefaultTailStart is the first index treated as "unlikely to be in the
	// feed" and enriched straight from the cache.
	DefaultTailStart      = 50
	DefaultBackendTimeout = 3 * time.Second
)

// Snapshot is the displayed state. Movies must not be mutated.
type Snapshot struct {
	Movies    []movie.Record
	Loading   bool
	Error     string
	State     State
	UpdatedAt time.Time
}

// Cache is the part of history.Cache the orchestrator uses.
type Cache interface {
	LoadFromExports(ctx context.Context, src history.ExportLoader) []movie.Record
	MergeAndCache(ctx context.Context, existing, remote []movie.Record) []movie.Record
	Save(ctx context.Context, recs []movie.Record)
}

// FeedLoader yields the live feed, or nothing when it is unavailable.
type FeedLoader interface {
	LoadFeed(ctx context.Context) []movie.Record
}

// MovieLister is the backend API.
type MovieLister interface {
	Movies(ctx context.Context, limit, skip int) ([]movie.Record, error)
}

// Enricher produces sparse patches for a record list.
type Enricher interface {
	Run(ctx context.Context, records []movie.Record) []movie.Patch
}

// Notifier announces displayed-set changes.
type Notifier interface {
	MoviesUpdated(count int, reason string)
}

type Options struct {
	Exports history.ExportLoader
	Feed    FeedLoader
	Cache   Cache
	// Backend is optional; when it lists movies they replace local
	// aggregation for the cycle.
	Backend MovieLister
	Posters Enricher
	// Details is optional and usually gated by a feature flag.
	Details Enricher
	Events  Notifier
	Metrics *Metrics
	Log     *zap.Logger

	Interval       time.Duration
	TailStart      int
	BackendTimeout time.Duration
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	opts Options
	log  *zap.Logger

	sf       singleflight.Group
	enriched atomic.Bool

	mu   sync.RWMutex
	snap Snapshot

	// saveMu orders cache writes so the last save is always the displayed
	// set. Taken before mu, never inside it.
	saveMu sync.Mutex
}

func New(opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TailStart <= 0 {
		opts.TailStart = DefaultTailStart
	}
	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = DefaultBackendTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Orchestrator{
		opts: opts,
		log:  opts.Log,
		snap: Snapshot{Loading: true, State: StateIdle},
	}
}

// Snapshot returns the current displayed state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snap
}

// Find returns the displayed record with id.
func (o *Orchestrator) Find(id string) (movie.Record, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, r := range o.snap.Movies {
		if r.ID == id {
			return r, true
		}
	}
	return movie.Record{}, false
}

// Run refreshes immediately and then every Interval until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) {
	t := time.NewTicker(o.opts.Interval)
	defer t.Stop()

	for {
		if err := o.Refresh(ctx); err != nil && ctx.Err() == nil {
			o.log.Error("refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Refresh runs one cycle. Concurrent callers share the cycle in flight.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	ch := o.sf.DoChan("refresh", func() (any, error) {
		return nil, o.cycle(ctx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (o *Orchestrator) cycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh cycle panic: %v", r)
		}
		o.finish(err)
		o.opts.Metrics.cycle(err, time.Since(start))
	}()

	if o.fromBackend(ctx) {
		return nil
	}

	o.setState(StateLoadingCache)
	hist := o.opts.Cache.LoadFromExports(ctx, o.opts.Exports)
	if len(hist) > 0 {
		o.display(hist, "history")
	}

	c := &cycleState{}
	var bg errgroup.Group
	if o.opts.Posters != nil && len(hist) > o.opts.TailStart {
		tail := hist[o.opts.TailStart:]
		bg.Go(func() error {
			o.log.Debug("enriching cache tail", zap.Int("records", len(tail)), zap.String("state", string(StateEnrichingCacheTail)))
			o.land(ctx, c, o.opts.Posters.Run(ctx, tail), "cache-tail")
			return nil
		})
	}

	o.setState(StateLoadingRemote)
	var remote []movie.Record
	if o.opts.Feed != nil {
		remote = o.opts.Feed.LoadFeed(ctx)
	}

	if len(remote) > 0 {
		o.setState(StateMergingRemote)
		o.saveMu.Lock()
		merged := o.opts.Cache.MergeAndCache(ctx, hist, remote)
		merged, reapplied := o.displayMerged(c, merged)
		if reapplied > 0 {
			o.opts.Cache.Save(ctx, merged)
		}
		o.saveMu.Unlock()
		o.notify(len(merged), "merged")

		if o.enriched.CompareAndSwap(false, true) {
			o.setState(StateEnrichingMerged)
			o.enrichMerged(ctx, c, merged)
		}
	}

	_ = bg.Wait()
	return nil
}

// fromBackend reports whether the backend API supplied the set.
func (o *Orchestrator) fromBackend(ctx context.Context) bool {
	if o.opts.Backend == nil {
		return false
	}
	bctx, cancel := context.WithTimeout(ctx, o.opts.BackendTimeout)
	defer cancel()

	list, err := o.opts.Backend.Movies(bctx, 0, 0)
	if err != nil {
		o.log.Warn("backend api unavailable, aggregating locally", zap.String("source", "backend"), zap.Error(err))
		return false
	}
	if len(list) == 0 {
		return false
	}
	o.display(list, "backend")
	return true
}

func (o *Orchestrator) enrichMerged(ctx context.Context, c *cycleState, merged []movie.Record) {
	var g errgroup.Group
	run := func(e Enricher, reason string) {
		g.Go(func() error {
			o.land(ctx, c, e.Run(ctx, merged), reason)
			return nil
		})
	}
	if o.opts.Posters != nil {
		run(o.opts.Posters, "posters")
	}
	if o.opts.Details != nil {
		run(o.opts.Details, "details")
	}
	_ = g.Wait()
}

// cycleState remembers patches that landed during a cycle so a later merge
// does not drop them. Guarded by Orchestrator.mu.
type cycleState struct {
	landed []movie.Patch
}

// land applies patches onto whatever is displayed now and saves the result.
func (o *Orchestrator) land(ctx context.Context, c *cycleState, patches []movie.Patch, reason string) {
	if len(patches) == 0 {
		return
	}
	o.saveMu.Lock()
	o.mu.Lock()
	c.landed = append(c.landed, patches...)
	next, changed := movie.ApplyPatches(o.snap.Movies, patches)
	if changed > 0 {
		o.snap.Movies = next
		o.snap.UpdatedAt = time.Now()
	}
	o.mu.Unlock()

	if changed == 0 {
		o.saveMu.Unlock()
		return
	}
	o.opts.Cache.Save(ctx, next)
	o.saveMu.Unlock()
	o.log.Debug("enrichment patches applied", zap.String("reason", reason), zap.Int("changed", changed))
	o.notify(len(next), reason)
}

// displayMerged publishes merged with every patch landed so far reapplied
// and reports how many records those patches changed.
func (o *Orchestrator) displayMerged(c *cycleState, merged []movie.Record) ([]movie.Record, int) {
	o.mu.Lock()
	merged, changed := movie.ApplyPatches(merged, c.landed)
	o.snap.Movies = merged
	o.snap.Loading = false
	o.snap.UpdatedAt = time.Now()
	o.mu.Unlock()
	o.opts.Metrics.movies(len(merged))
	return merged, changed
}

func (o *Orchestrator) display(list []movie.Record, reason string) {
	o.mu.Lock()
	o.snap.Movies = list
	o.snap.Loading = false
	o.snap.UpdatedAt = time.Now()
	o.mu.Unlock()
	o.opts.Metrics.movies(len(list))
	o.notify(len(list), reason)
}

func (o *Orchestrator) notify(count int, reason string) {
	if o.opts.Events != nil {
		o.opts.Events.MoviesUpdated(count, reason)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.snap.State = s
	o.mu.Unlock()
	o.log.Debug("refresh state", zap.String("state", string(s)))
}

func (o *Orchestrator) finish(err error) {
	o.mu.Lock()
	o.snap.Loading = false
	o.snap.State = StateSettled
	if err != nil {
		o.snap.Error = err.Error()
	} else {
		o.snap.Error = ""
	}
	count := len(o.snap.Movies)
	o.mu.Unlock()

	if err != nil {
		o.log.Error("refresh cycle failed", zap.Error(err))
		return
	}
	o.log.Info("refresh cycle settled", zap.Int("movies", count))
}
