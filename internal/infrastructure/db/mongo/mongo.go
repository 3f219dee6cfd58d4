package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "taskpilot"
)

// Config selects the MongoDB deployment that backs STORE_DRIVER=mongo.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Open connects to MongoDB, verifies the connection and returns a
// RecordStore over cfg.Database. Close the store to disconnect.
func Open(ctx context.Context, cfg Config) (*RecordStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}

	return NewRecordStore(client.Database(cfg.Database)), nil
}

// Close disconnects the underlying client.
func (r *RecordStore) Close(ctx context.Context) error {
	return r.db.Client().Disconnect(ctx)
}
