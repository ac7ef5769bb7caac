package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/platform/api"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/services/archive/internal/store"
)

type moviesResponse struct {
	Movies []movie.Record `json:"movies"`
}

// ListMovies handles GET /api/movies?limit=&skip=
func ListMovies(s store.MovieStore, cache Cache, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		limit := queryInt(r, "limit", store.DefaultLimit)
		skip := queryInt(r, "skip", 0)
		key := fmt.Sprintf("movies:%d:%d", limit, skip)

		if cache != nil {
			if v, ok := cache.Get(key); ok {
				api.WriteJSON(w, http.StatusOK, v)
				return
			}
		}

		list, err := s.List(r.Context(), limit, skip)
		if err != nil {
			writeStoreError(w, rid, log, "list movies", err)
			return
		}
		resp := moviesResponse{Movies: list}
		if cache != nil {
			cache.Set(key, resp)
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// queryInt mirrors parseInt-or-default: junk and zero fall back.
func queryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
