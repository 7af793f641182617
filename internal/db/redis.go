package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis opens a Redis client from the given URL (e.g. redis://localhost:6379/0)
// and verifies connectivity with a bounded ping. Caller must call Close when done.
func OpenRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
