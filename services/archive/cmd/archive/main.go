package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/letterboxd"
	"github.com/example/cinephilia/internal/platform/config"
	"github.com/example/cinephilia/internal/platform/events"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/internal/platform/logging"
	"github.com/example/cinephilia/internal/platform/natsconn"
	"github.com/example/cinephilia/internal/platform/run"
	"github.com/example/cinephilia/internal/relay"
	archiveconfig "github.com/example/cinephilia/services/archive/internal/config"
	"github.com/example/cinephilia/services/archive/internal/handlers"
	"github.com/example/cinephilia/services/archive/internal/ingest"
	"github.com/example/cinephilia/services/archive/internal/store"
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

	acfg, err := archiveconfig.Load()
	if err != nil {
		log.Error("load archive config", zap.Error(err))
		run.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	movies := store.Open(startCtx, acfg, log)
	cancel()

	runner := run.New(log)
	runner.OnShutdown("store", movies.Close)

	nc, err := natsconn.Dial(natsconn.Options{URL: acfg.NATSURL, Name: cfg.ServiceName, Log: log})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	if nc != nil {
		runner.OnShutdown("nats", func(context.Context) error { return nc.Drain() })
	}

	cache, err := handlers.NewTTLCache(acfg.MoviesCacheTTL, nc, events.SubjectMoviesUpdated)
	if err != nil {
		log.Error("subscribe cache invalidation", zap.Error(err))
		run.Exit(1)
	}
	runner.OnShutdown("cache", func(context.Context) error { return cache.Close() })

	var feed ingest.FeedFetcher
	if acfg.FeedURL != "" {
		feed = &letterboxd.Source{
			FeedURL: acfg.FeedURL,
			Feed:    relay.New(relay.Options{Template: acfg.RelayTemplate, Log: log}),
			Log:     log,
		}
	} else {
		log.Warn("LETTERBOXD_RSS_URL not set, rss-refresh disabled")
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return movies.Ping(ctx)
		},
	})
	handlers.Routes(r, handlers.Deps{
		Store:  movies,
		Feed:   feed,
		Cache:  cache,
		Events: events.New(nc, cfg.ServiceName, log),
		Log:    log,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner.OnShutdown("http", srv.Shutdown)
	code := runner.WithSignals(srv.Serve)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
