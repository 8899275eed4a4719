// Package cache provides the shared cache store connection used for ephemeral
// session and rate-limit state.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a Redis connection from a connection URL and verifies it
// with a ping. The timeout bounds dials, reads, and writes so a slow cache
// cannot stall login and signup requests. The returned client is safe for
// concurrent use.
func Connect(ctx context.Context, redisURL string, timeout time.Duration) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	options.DialTimeout = timeout
	options.ReadTimeout = timeout
	options.WriteTimeout = timeout

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
