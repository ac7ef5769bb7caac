package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/platform/api"
	"github.com/example/cinephilia/internal/platform/httpserver"
	"github.com/example/cinephilia/services/archive/internal/ingest"
	"github.com/example/cinephilia/services/archive/internal/store"
)

type refreshResponse struct {
	Updated int `json:"updated"`
}

// RSSRefresh handles GET|POST /api/rss-refresh.
func RSSRefresh(s store.MovieStore, feed ingest.FeedFetcher, cache Cache, events Notifier, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		if feed == nil {
			api.InternalWithCode(w, "NOT_CONFIGURED", "LETTERBOXD_RSS_URL is not set", rid)
			return
		}

		n, err := ingest.RefreshFromFeed(r.Context(), s, feed)
		if err != nil {
			if !errors.Is(err, ingest.ErrFeed) {
				writeStoreError(w, rid, log, "rss refresh", err)
				return
			}
			log.Warn("rss refresh: feed unavailable", zap.String("request_id", rid), zap.Error(err))
			api.BadGateway(w, "FEED_UNAVAILABLE", err.Error(), rid)
			return
		}

		if n > 0 {
			if cache != nil {
				cache.Purge()
			}
			if events != nil {
				events.MoviesUpdated(n, "rss-refresh")
			}
		}
		log.Info("rss refresh", zap.String("request_id", rid), zap.Int("updated", n))
		api.WriteJSON(w, http.StatusOK, refreshResponse{Updated: n})
	}
}
