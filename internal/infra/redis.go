package infra

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client for the external cache. Connection
// health is probed lazily by the cache layer, which degrades to no-op
// mode when the store is unreachable.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
