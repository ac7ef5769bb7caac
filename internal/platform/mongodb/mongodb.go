// Package mongodb opens MongoDB connections as explicit, caller-owned handles.
package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const defaultDatabase = "cinephilia"

// ErrNoURI is returned when no connection string was configured.
var ErrNoURI = errors.New("MONGODB_URI is required")

// Handle owns a connected client and the database selected for it.
type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Open connects and pings. dbName defaults to "cinephilia".
func Open(ctx context.Context, uri, dbName string) (*Handle, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrNoURI
	}
	if strings.TrimSpace(dbName) == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Handle{Client: client, DB: client.Database(dbName)}, nil
}

// Close disconnects the client. Safe on a nil handle.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.Client == nil {
		return nil
	}
	return h.Client.Disconnect(ctx)
}
