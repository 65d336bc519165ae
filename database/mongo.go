package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo connects and pings MongoDB, retrying like ConnectPostgres.
func ConnectMongo(ctx context.Context, uri, dbName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	var client *mongo.Client
	attempt := 0

	operation := func() error {
		attempt++
		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(timeoutCtx, options.Client().ApplyURI(uri))
		if err == nil {
			if err = c.Ping(timeoutCtx, nil); err != nil {
				_ = c.Disconnect(context.Background())
			}
		}
		if err != nil {
			logger.Warn("MongoDB connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		client = c
		return nil
	}

	if err := backoff.Retry(operation, connectBackOff(ctx)); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB successfully", zap.String("database", dbName))
	return client, client.Database(dbName), nil
}

// CloseMongo disconnects from MongoDB
func CloseMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
