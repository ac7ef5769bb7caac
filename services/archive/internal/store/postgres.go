package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/cinephilia/internal/movie"
)

const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS movies (
	id           TEXT NOT NULL,
	title        TEXT NOT NULL,
	year         INT NOT NULL DEFAULT 0,
	director     TEXT NOT NULL DEFAULT '',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	poster       TEXT NOT NULL DEFAULT '',
	backdrop     TEXT NOT NULL DEFAULT '',
	review       TEXT NOT NULL DEFAULT '',
	watched_date TEXT NOT NULL DEFAULT '',
	runtime      INT NOT NULL DEFAULT 0,
	genre        TEXT[] NOT NULL DEFAULT '{}',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const pgIndexName = "movies_id_key"

// Postgres keeps records in a flat "movies" table with a unique id index.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) List(ctx context.Context, limit, skip int) ([]movie.Record, error) {
	limit, skip = normalizePage(limit, skip)
	rows, err := s.db.Query(ctx, `
SELECT id, title, year, director, rating, poster, backdrop, review, watched_date, runtime, genre
FROM movies ORDER BY watched_date DESC, id LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	out := []movie.Record{}
	for rows.Next() {
		var r movie.Record
		if err := rows.Scan(&r.ID, &r.Title, &r.Year, &r.Director, &r.Rating, &r.Poster, &r.Backdrop,
			&r.Review, &r.WatchedDate, &r.Runtime, &r.Genre); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Upsert creates the schema on first use so it works before setup ran.
func (s *Postgres) Upsert(ctx context.Context, recs []movie.Record) (int, error) {
	recs = upsertable(recs)
	if len(recs) == 0 {
		return 0, nil
	}
	if _, err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
INSERT INTO movies (id, title, year, director, rating, poster, backdrop, review, watched_date, runtime, genre, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title, year = EXCLUDED.year, director = EXCLUDED.director,
	rating = EXCLUDED.rating, poster = EXCLUDED.poster, backdrop = EXCLUDED.backdrop,
	review = EXCLUDED.review, watched_date = EXCLUDED.watched_date,
	runtime = EXCLUDED.runtime, genre = EXCLUDED.genre, updated_at = now()`,
			r.ID, r.Title, r.Year, r.Director, r.Rating, r.Poster, r.Backdrop, r.Review, r.WatchedDate, r.Runtime, r.Genre)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("upsert movie: %w", err)
		}
	}
	return len(recs), nil
}

func (s *Postgres) EnsureIndex(ctx context.Context) (string, error) {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		return "", fmt.Errorf("create table: %w", err)
	}
	_, err := s.db.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS `+pgIndexName+` ON movies (id)`)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return "", ErrIndexExists
	}
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	return pgIndexName, nil
}

func (s *Postgres) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *Postgres) Close(context.Context) error {
	s.db.Close()
	return nil
}
