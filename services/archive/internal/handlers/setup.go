package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/platform/api"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/services/archive/internal/store"
)

type setupResponse struct {
	Message   string `json:"message"`
	IndexName string `json:"indexName,omitempty"`
}

// Setup handles GET|POST /api/setup. Safe to repeat.
func Setup(s store.MovieStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		name, err := s.EnsureIndex(r.Context())
		if errors.Is(err, store.ErrIndexExists) {
			api.WriteJSON(w, http.StatusOK, setupResponse{Message: "Index already exists"})
			return
		}
		if err != nil {
			writeStoreError(w, rid, log, "ensure index", err)
			return
		}
		api.WriteJSON(w, http.StatusOK, setupResponse{Message: "Database initialized", IndexName: name})
	}
}
