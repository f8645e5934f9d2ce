package redisx

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

// NewFromEnv connects to Redis when REDIS_URL is set, returning
// (nil, nil) otherwise so callers fall back to in-process caches. A
// configured-but-unreachable Redis is reported as an error.
func NewFromEnv(log *logger.Logger) (*redis.Client, error) {
	url := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if url == "" {
		return nil, nil
	}
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
	log.Info("Redis connected", "addr", opts.Addr)
	return client, nil
}
