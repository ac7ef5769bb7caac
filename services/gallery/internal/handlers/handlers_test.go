package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/cinephilia/internal/gallery"
	"github.com/example/cinephilia/internal/movie"
)

const resizedPoster = "https://a.ltrbxd.com/resized/film-poster/1/2/3/4/5/12345-arrival-0-1000-0-1500-crop.jpg"

type stubGallery struct {
	snap gallery.Snapshot

	mu       sync.Mutex
	refreshN int
	done     chan struct{}
}

func (s *stubGallery) Snapshot() gallery.Snapshot { return s.snap }

func (s *stubGallery) Find(id string) (movie.Record, bool) {
	for _, m := range s.snap.Movies {
		if m.ID == id {
			return m, true
		}
	}
	return movie.Record{}, false
}

func (s *stubGallery) Refresh(context.Context) error {
	s.mu.Lock()
	s.refreshN++
	s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	return nil
}

func newRouter(g Gallery) chi.Router {
	r := chi.NewRouter()
	Routes(r, Deps{Gallery: g})
	return r
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func sampleGallery() *stubGallery {
	return &stubGallery{snap: gallery.Snapshot{
		Movies: []movie.Record{
			{ID: "https://boxd.it/a", Title: "Arrival", Year: 2016, Poster: resizedPoster, Backdrop: resizedPoster},
			{ID: "heat-2020-03-01", Title: "Heat", Poster: "https://example.com/heat.jpg"},
		},
		State:     gallery.StateSettled,
		UpdatedAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}}
}

func TestListMovies(t *testing.T) {
	rr := do(newRouter(sampleGallery()), http.MethodGet, "/v1/movies")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["error"]) != "null" || string(raw["loading"]) != "false" {
		t.Fatalf("unexpected envelope %v", raw)
	}
	var list []movie.Record
	if err := json.Unmarshal(raw["movies"], &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Poster != resizedPoster {
		t.Fatalf("posters should be untouched without ?poster, got %+v", list)
	}
}

func TestListMovies_ReportsError(t *testing.T) {
	g := sampleGallery()
	g.snap.Error = "refresh cycle panic: boom"
	rr := do(newRouter(g), http.MethodGet, "/v1/movies")
	var resp listResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || *resp.Error != g.snap.Error || len(resp.Movies) != 2 {
		t.Fatalf("last list should stay displayed with the error, got %+v", resp)
	}
}

func TestListMovies_PosterSize(t *testing.T) {
	rr := do(newRouter(sampleGallery()), http.MethodGet, "/v1/movies?poster=card")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp listResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Movies[0].Poster, "-0-240-0-360-crop.") {
		t.Fatalf("expected card-sized poster, got %q", resp.Movies[0].Poster)
	}
	if resp.Movies[1].Poster != "https://example.com/heat.jpg" {
		t.Fatalf("foreign poster should be unchanged, got %q", resp.Movies[1].Poster)
	}
}

func TestListMovies_BadPosterSize(t *testing.T) {
	rr := do(newRouter(sampleGallery()), http.MethodGet, "/v1/movies?poster=huge")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetMovie(t *testing.T) {
	r := newRouter(sampleGallery())
	rr := do(r, http.MethodGet, "/v1/movies/heat-2020-03-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp detailResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Movie.Title != "Heat" || resp.PosterSrcSet != "" {
		t.Fatalf("unexpected detail %+v", resp)
	}

	if rr := do(r, http.MethodGet, "/v1/movies/missing"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRefresh_Detached(t *testing.T) {
	g := sampleGallery()
	g.done = make(chan struct{})
	rr := do(newRouter(g), http.MethodPost, "/v1/refresh")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	select {
	case <-g.done:
	case <-time.After(time.Second):
		t.Fatal("refresh was not triggered")
	}
}

func TestRefresh_WrongMethod(t *testing.T) {
	if rr := do(newRouter(sampleGallery()), http.MethodGet, "/v1/refresh"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
