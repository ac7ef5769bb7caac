// Package handlers serves the archive HTTP API: movie listing, store setup
// and a server-side feed refresh.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/platform/api"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/services/archive/internal/ingest"
	"github.com/example/cinephilia/services/archive/internal/store"
)

// Notifier announces store changes to other processes.
type Notifier interface {
	MoviesUpdated(count int, reason string)
}

type Deps struct {
	Store  store.MovieStore
	Feed   ingest.FeedFetcher
	Cache  Cache
	Events Notifier
	Log    *zap.Logger
}

// Routes registers the API on r. Unsupported methods on a known path answer
// 405 with the error envelope.
func Routes(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.MethodNotAllowed(w, httpserver.RequestIDFromContext(r.Context()))
	})

	r.Get("/api/movies", ListMovies(d.Store, d.Cache, d.Log))

	setup := Setup(d.Store, d.Log)
	r.Get("/api/setup", setup)
	r.Post("/api/setup", setup)

	refresh := RSSRefresh(d.Store, d.Feed, d.Cache, d.Events, d.Log)
	r.Get("/api/rss-refresh", refresh)
	r.Post("/api/rss-refresh", refresh)
}

// writeStoreError maps store failures onto the error envelope.
func writeStoreError(w http.ResponseWriter, rid string, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		api.InternalWithCode(w, "NOT_CONFIGURED", err.Error(), rid)
	case errors.Is(err, context.DeadlineExceeded):
		api.WriteError(w, http.StatusGatewayTimeout, "TIMEOUT", "store timed out", rid, nil)
	default:
		log.Error(op, zap.String("request_id", rid), zap.Error(err))
		api.InternalWithCode(w, "STORE_ERROR", err.Error(), rid)
	}
}
