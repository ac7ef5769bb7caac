package store

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/movie"
	archiveconfig "github.com/example/cinephilia/services/archive/internal/config"
)

func TestMemory_UpsertAndList(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	n, err := s.Upsert(ctx, []movie.Record{
		{ID: "a", Title: "Arrival", WatchedDate: "2024-01-05"},
		{ID: "h", Title: "Heat", WatchedDate: "2024-03-01"},
		{ID: "", Title: "No id"},
		{ID: "x"},
	})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 upserts, got %d %v", n, err)
	}
	if _, err := s.Upsert(ctx, []movie.Record{{ID: "a", Title: "Arrival", Rating: 4, WatchedDate: "2024-01-05"}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "h" || got[1].Rating != 4 {
		t.Fatalf("unexpected list %+v", got)
	}
	if got[0].Genre == nil {
		t.Fatal("genre should be normalised to an empty list")
	}

	page, _ := s.List(ctx, 1, 1)
	if len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("unexpected page %+v", page)
	}
	if empty, _ := s.List(ctx, 10, 5); len(empty) != 0 {
		t.Fatalf("expected empty page, got %+v", empty)
	}
}

func TestOpen_MissingDSNIsNotConfigured(t *testing.T) {
	for _, driver := range []string{archiveconfig.DriverMongo, archiveconfig.DriverPostgres} {
		s := Open(context.Background(), archiveconfig.Config{StoreDriver: driver}, zap.NewNop())
		u, ok := s.(*Unavailable)
		if !ok {
			t.Fatalf("%s: expected *Unavailable, got %T", driver, s)
		}
		if !errors.Is(u.Err, ErrNotConfigured) {
			t.Fatalf("%s: expected ErrNotConfigured, got %v", driver, u.Err)
		}
		if _, err := s.List(context.Background(), 0, 0); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("%s: List should fail with ErrNotConfigured, got %v", driver, err)
		}
	}
}

func TestOpen_Memory(t *testing.T) {
	s := Open(context.Background(), archiveconfig.Config{StoreDriver: archiveconfig.DriverMemory}, zap.NewNop())
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", s)
	}
}
