// Package store persists movie records for the archive API, keyed by id.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/platform/db"
	"github.com/example/cinephilia/internal/platform/mongodb"
	archiveconfig "github.com/example/cinephilia/services/archive/internal/config"
)

const (
	DefaultLimit = 200
	collection   = "movies"
)

var (
	// ErrNotConfigured means the store has no connection string.
	ErrNotConfigured = errors.New("store not configured")
	// ErrIndexExists is returned by EnsureIndex when a conflicting index or
	// duplicate ids already exist.
	ErrIndexExists = errors.New("index already exists")
)

// MovieStore is implemented by every backend.
type MovieStore interface {
	// List returns records sorted by watchedDate descending.
	List(ctx context.Context, limit, skip int) ([]movie.Record, error)
	// Upsert writes each record by id and reports how many were written.
	Upsert(ctx context.Context, recs []movie.Record) (int, error)
	// EnsureIndex creates the unique id index and returns its name.
	EnsureIndex(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open builds the store for cfg.StoreDriver. A missing connection string or
// an unreachable server yields an Unavailable store so the API can still
// answer.
func Open(ctx context.Context, cfg archiveconfig.Config, log *zap.Logger) MovieStore {
	switch cfg.StoreDriver {
	case archiveconfig.DriverMemory:
		log.Warn("store: in-memory, data is lost on restart")
		return NewMemory()
	case archiveconfig.DriverPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return unavailable(log, "postgres", err)
		}
		log.Info("store: postgres")
		return NewPostgres(pool)
	default:
		h, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return unavailable(log, "mongo", err)
		}
		log.Info("store: mongo", zap.String("db", h.DB.Name()))
		return NewMongo(h)
	}
}

func unavailable(log *zap.Logger, driver string, err error) *Unavailable {
	if errors.Is(err, db.ErrNoDSN) || errors.Is(err, mongodb.ErrNoURI) {
		err = fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	log.Error("store unavailable", zap.String("driver", driver), zap.Error(err))
	return &Unavailable{Err: err}
}

// Unavailable fails every call with Err.
type Unavailable struct {
	Err error
}

func (u *Unavailable) List(context.Context, int, int) ([]movie.Record, error) { return nil, u.Err }
func (u *Unavailable) Upsert(context.Context, []movie.Record) (int, error)    { return 0, u.Err }
func (u *Unavailable) EnsureIndex(context.Context) (string, error)            { return "", u.Err }
func (u *Unavailable) Ping(context.Context) error                             { return u.Err }
func (u *Unavailable) Close(context.Context) error                            { return nil }

func normalizePage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

// upsertable drops records that cannot be keyed.
func upsertable(recs []movie.Record) []movie.Record {
	out := make([]movie.Record, 0, len(recs))
	for _, r := range recs {
		if r.ID != "" && r.Valid() {
			if r.Genre == nil {
				r.Genre = []string{}
			}
			out = append(out, r)
		}
	}
	return out
}
