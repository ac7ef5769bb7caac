package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/backend"
	"github.com/example/cinephilia/internal/enrich"
	"github.com/example/cinephilia/internal/gallery"
	"github.com/example/cinephilia/internal/history"
	"github.com/example/cinephilia/internal/kv"
	"github.com/example/cinephilia/internal/letterboxd"
	"github.com/example/cinephilia/internal/platform/config"
	"github.com/example/cinephilia/internal/platform/events"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/internal/platform/logging"
	"github.com/example/cinephilia/internal/platform/natsconn"
	"github.com/example/cinephilia/internal/platform/run"
	"github.com/example/cinephilia/internal/relay"
	galleryconfig "github.com/example/cinephilia/services/gallery/internal/config"
	"github.com/example/cinephilia/services/gallery/internal/datadir"
	galleryhandlers "github.com/example/cinephilia/services/gallery/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gcfg, err := galleryconfig.Load()
	if err != nil {
		log.Error("load gallery config", zap.Error(err))
		run.Exit(1)
	}

	lock, err := datadir.Acquire(gcfg.LockPath())
	if err != nil {
		log.Error("data dir", zap.Error(err))
		run.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := kv.Open(startCtx, kv.Options{RedisURL: gcfg.RedisURL, SQLitePath: gcfg.SQLitePath(), Log: log})
	cancel()
	if err != nil {
		log.Error("open kv store", zap.Error(err))
		_ = lock.Release()
		run.Exit(1)
	}

	runner := run.New(log)
	runner.OnShutdown("lock", func(context.Context) error { return lock.Release() })
	runner.OnShutdown("kv", func(context.Context) error { return store.Close() })

	nc, err := natsconn.Dial(natsconn.Options{URL: gcfg.NATSURL, Name: cfg.ServiceName, Log: log})
	if err != nil {
		log.Warn("nats unavailable, events disabled", zap.Error(err))
		nc = nil
	}
	if nc != nil {
		runner.OnShutdown("nats", func(context.Context) error { return nc.Drain() })
	}

	reg := prometheus.DefaultRegisterer
	relayMetrics := relay.NewMetrics(reg)
	// Feed and film pages share one chain, so a relay tripped by one is
	// skipped by the other.
	letterboxdRelay := relay.New(relay.Options{Template: gcfg.RelayTemplate, Log: log, Metrics: relayMetrics})
	// Exports are published next to the app, never through a relay.
	direct := relay.New(relay.Options{Template: relay.TemplateDirect, Log: log, Metrics: relayMetrics})

	src := &letterboxd.Source{
		ExportDir:     gcfg.ExportDir,
		ExportBaseURL: gcfg.ExportBaseURL,
		FeedURL:       gcfg.FeedURL,
		Exports:       direct,
		Feed:          letterboxdRelay,
		Log:           log,
	}

	limiter := enrich.NewRPS(gcfg.EnrichRPS)
	runner.OnShutdown("limiter", func(context.Context) error { limiter.Stop(); return nil })
	enrichMetrics := enrich.NewMetrics(reg)
	workerOpts := enrich.Options{
		Fetcher:        enrich.PageFetcher{Getter: letterboxdRelay},
		Store:          store,
		Log:            log,
		Metrics:        enrichMetrics,
		Limiter:        limiter,
		EmptyResultTTL: gcfg.EmptyResultTTL,
	}

	opts := gallery.Options{
		Exports:  src,
		Feed:     src,
		Cache:    history.New(store, log),
		Posters:  enrich.NewPosterWorker(workerOpts),
		Events:   events.New(nc, cfg.ServiceName, log),
		Metrics:  gallery.NewMetrics(reg),
		Log:      log,
		Interval: gcfg.RefreshInterval,
	}
	if gcfg.EnableDetailEnrichment {
		opts.Details = enrich.NewDetailWorker(workerOpts)
	}
	if backend.ShouldAttempt(gcfg.BackendURL) {
		opts.Backend = backend.New(gcfg.BackendURL)
	}
	orch := gallery.New(opts)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{Logger: log})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner.OnShutdown("http", srv.Shutdown)
	code := runner.WithSignals(func(ctx context.Context) error {
		galleryhandlers.Routes(r, galleryhandlers.Deps{Gallery: orch, Base: ctx, Log: log})
		go orch.Run(ctx)
		return srv.Serve(ctx)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
