// Package cache is the key/value store behind the weather cache-aside lookup.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store. Get reports found=false on a miss; a
// non-nil error means the store itself could not be reached.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
