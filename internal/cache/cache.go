// Package cache provides the shared read-through cache backends for the
// identity client. The in-memory backend is the default; the redis backend
// lets several processes share one affiliation cache.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented TTL cache. Implementations must be safe for
// concurrent use: the identity client is a process-wide singleton.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
