package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carva/internal/config"
)

const (
	mongoConnectAttempts = 5
	mongoConnectDelay    = 2 * time.Second
)

// NewMongoClient connects to MongoDB, retrying while the server starts. The
// change stream behind Subscribe needs a replica set, so a standalone server
// is accepted with a warning.
func NewMongoClient(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*mongo.Client, error) {
	var lastErr error
	for i := 0; i < mongoConnectAttempts; i++ {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(10*time.Second))
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				var status struct {
					Ok int `bson:"ok"`
				}
				rsErr := client.Database("admin").RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&status)
				if rsErr != nil || status.Ok != 1 {
					logger.Warn("mongodb is not a replica set, change notifications disabled", "error", rsErr)
				}
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}

		lastErr = err
		logger.Warn("failed to connect to mongodb", "attempt", i+1, "max_attempts", mongoConnectAttempts, "error", err)
		if i < mongoConnectAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(mongoConnectDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to mongodb after %d attempts: %w", mongoConnectAttempts, lastErr)
}
