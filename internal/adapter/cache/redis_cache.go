package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"medrag/internal/domain"
)

// RedisCache is the external cache layer. The first connection failure
// flips the degraded flag; from then on every Get is a miss and every
// Set a no-op, instead of paying a timeout per call.
type RedisCache struct {
	client   *redis.Client
	log      *slog.Logger
	degraded atomic.Bool
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client, log *slog.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

// Degraded reports whether the cache has short-circuited itself.
func (c *RedisCache) Degraded() bool {
	return c.degraded.Load()
}

// Get returns the raw bytes stored under key, or a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.degraded.Load() {
		return nil, false
	}

	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.markDegraded(err)
		return nil, false
	}
	return value, true
}

// Set stores value under key with the given TTL, best effort.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.degraded.Load() {
		return
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.markDegraded(err)
	}
}

func (c *RedisCache) markDegraded(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		c.log.Warn("cache unreachable, continuing without caching",
			slog.String("error", err.Error()),
		)
	}
}

var _ domain.Cache = (*RedisCache)(nil)
