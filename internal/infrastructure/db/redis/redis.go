package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config selects the Redis instance that holds the session directory.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Open connects to Redis, checks it answers and returns a SessionDirectory
// over the connection. Close the directory to release the client.
func Open(ctx context.Context, cfg Config) (*SessionDirectory, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewSessionDirectory(client), nil
}

// Close releases the Redis client.
func (d *SessionDirectory) Close() error {
	return d.client.Close()
}
