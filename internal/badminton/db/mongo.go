package db

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens the activity-feed database named by MONGODB_URI.
// Returns (nil, nil, nil) when the URI is unset: the feed is optional.
func ConnectMongo(ctx context.Context) (*mongo.Database, func(), error) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		return nil, nil, nil
	}

	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}
	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		return nil, nil, err
	}

	closer := func() {
		client.Disconnect(context.Background())
		cancel()
	}
	return client.Database(dbName), closer, nil
}
