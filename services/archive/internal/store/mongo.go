package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/example/cinephilia/internal/movie"
	"github.com/example/cinephilia/internal/platform/mongodb"
)

// Mongo stores one document per record in the "movies" collection.
type Mongo struct {
	h    *mongodb.Handle
	coll *mongo.Collection
}

func NewMongo(h *mongodb.Handle) *Mongo {
	return &Mongo{h: h, coll: h.DB.Collection(collection)}
}

func (s *Mongo) List(ctx context.Context, limit, skip int) ([]movie.Record, error) {
	limit, skip = normalizePage(limit, skip)
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetSort(bson.D{{Key: "watchedDate", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find movies: %w", err)
	}
	out := []movie.Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}
	return out, nil
}

func (s *Mongo) Upsert(ctx context.Context, recs []movie.Record) (int, error) {
	recs = upsertable(recs)
	if len(recs) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(recs))
	for _, r := range recs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "id", Value: r.ID}}).
			SetUpdate(bson.D{{Key: "$set", Value: r}}).
			SetUpsert(true))
	}
	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return 0, fmt.Errorf("bulk upsert: %w", err)
	}
	return len(recs), nil
}

func (s *Mongo) EnsureIndex(ctx context.Context) (string, error) {
	name, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrIndexExists
	}
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	return name, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.h.Client.Ping(ctx, readpref.Primary())
}

func (s *Mongo) Close(ctx context.Context) error { return s.h.Close(ctx) }
