package transcripts

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

// unavailableTTL is how long a video stays short-circuited after every
// method failed.
const unavailableTTL = 24 * time.Hour

// UnavailabilityCache remembers videos whose transcripts could not be
// produced. Writes are last-write-wins.
type UnavailabilityCache interface {
	MarkUnavailable(ctx context.Context, videoID string)
	IsUnavailable(ctx context.Context, videoID string) bool
}

// MemoryUnavailabilityCache is the process-local default.
type MemoryUnavailabilityCache struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryUnavailabilityCache() *MemoryUnavailabilityCache {
	return &MemoryUnavailabilityCache{until: map[string]time.Time{}, now: time.Now}
}

func (c *MemoryUnavailabilityCache) MarkUnavailable(_ context.Context, videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[videoID] = c.now().Add(unavailableTTL)
}

func (c *MemoryUnavailabilityCache) IsUnavailable(_ context.Context, videoID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.until[videoID]
	if !ok {
		return false
	}
	if c.now().After(deadline) {
		delete(c.until, videoID)
		return false
	}
	return true
}

// RedisUnavailabilityCache shares the marks across restarts when Redis
// is configured. Failures degrade to "available": a cache miss only
// costs a redundant fetch attempt.
type RedisUnavailabilityCache struct {
	log    *logger.Logger
	client *redis.Client
}

func NewRedisUnavailabilityCache(log *logger.Logger, client *redis.Client) *RedisUnavailabilityCache {
	return &RedisUnavailabilityCache{
		log:    log.With("service", "TranscriptUnavailabilityCache"),
		client: client,
	}
}

func redisKey(videoID string) string { return "transcripts:unavailable:" + videoID }

func (c *RedisUnavailabilityCache) MarkUnavailable(ctx context.Context, videoID string) {
	if err := c.client.Set(ctx, redisKey(videoID), "1", unavailableTTL).Err(); err != nil {
		c.log.Warn("Failed to mark video unavailable", "videoId", videoID, "error", err.Error())
	}
}

func (c *RedisUnavailabilityCache) IsUnavailable(ctx context.Context, videoID string) bool {
	n, err := c.client.Exists(ctx, redisKey(videoID)).Result()
	if err != nil {
		c.log.Warn("Unavailability lookup failed, treating as available", "videoId", videoID, "error", err.Error())
		return false
	}
	return n > 0
}
