package domain

import (
	"context"
	"time"
)

// Cache is a keyed byte cache with TTL. Implementations must tolerate a
// missing backing store: degraded instances answer every Get with a miss
// and drop every Set instead of failing per call.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
