// Package handlers exposes the orchestrator's displayed set over HTTP.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/gallery"
	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/platform/api"
	"github.com/example/cinephilia/internal/platform/httpserver"
)

// Gallery is the part of *gallery.Orchestrator the handlers read.
type Gallery interface {
	Snapshot() gallery.Snapshot
	Find(id string) (movie.Record, bool)
	Refresh(ctx context.Context) error
}

var srcSetWidths = []int{96, 240, 480, 700}

type Deps struct {
	Gallery Gallery
	// Base outlives requests; refreshes triggered over HTTP run on it.
	Base context.Context
	Log  *zap.Logger
}

func Routes(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Base == nil {
		d.Base = context.Background()
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.MethodNotAllowed(w, httpserver.RequestIDFromContext(r.Context()))
	})
	r.Get("/v1/movies", ListMovies(d.Gallery))
	r.Get("/v1/movies/{id}", GetMovie(d.Gallery))
	r.Post("/v1/refresh", Refresh(d.Base, d.Gallery, d.Log))
}

type listResponse struct {
	Movies    []movie.Record `json:"movies"`
	Loading   bool           `json:"loading"`
	Error     *string        `json:"error"`
	State     gallery.State  `json:"state"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// ListMovies handles GET /v1/movies?poster=tiny|card|detail
func ListMovies(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		size, ok := posterSize(r)
		if !ok {
			api.BadRequest(w, "VALIDATION_POSTER", "poster must be tiny, card or detail", rid,
				map[string]any{"poster": r.URL.Query().Get("poster")})
			return
		}

		snap := g.Snapshot()
		list := make([]movie.Record, len(snap.Movies))
		for i, m := range snap.Movies {
			list[i] = resized(m, size)
		}
		resp := listResponse{Movies: list, Loading: snap.Loading, State: snap.State}
		if snap.Error != "" {
			msg := snap.Error
			resp.Error = &msg
		}
		if !snap.UpdatedAt.IsZero() {
			resp.UpdatedAt = snap.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

type detailResponse struct {
	Movie        movie.Record `json:"movie"`
	PosterSrcSet string       `json:"posterSrcSet,omitempty"`
}

// GetMovie handles GET /v1/movies/{id}
func GetMovie(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		size, ok := posterSize(r)
		if !ok {
			api.BadRequest(w, "VALIDATION_POSTER", "poster must be tiny, card or detail", rid, nil)
			return
		}
		m, found := g.Find(chi.URLParam(r, "id"))
		if !found {
			api.NotFound(w, "NOT_FOUND", "movie not found", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, detailResponse{
			Movie:        resized(m, size),
			PosterSrcSet: movie.PosterSrcSet(m.Poster, srcSetWidths),
		})
	}
}

// Refresh handles POST /v1/refresh. The cycle runs detached from the
// request; concurrent triggers join the cycle in flight.
func Refresh(base context.Context, g Gallery, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		go func() {
			if err := g.Refresh(base); err != nil && base.Err() == nil {
				log.Warn("manual refresh failed", zap.String("request_id", rid), zap.Error(err))
			}
		}()
		api.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
	}
}

// posterSize reads ?poster; absent means "leave URLs alone".
func posterSize(r *http.Request) (movie.PosterSize, bool) {
	raw := r.URL.Query().Get("poster")
	if raw == "" {
		return "", true
	}
	return movie.ParsePosterSize(raw)
}

func resized(m movie.Record, size movie.PosterSize) movie.Record {
	if size == "" {
		return m
	}
	m.Poster = movie.OptimizedPoster(m.Poster, size)
	m.Backdrop = movie.OptimizedPoster(m.Backdrop, size)
	return m
}
