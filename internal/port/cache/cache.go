// Package cache defines the caching port used by the service layer to
// store rendered settings and webhook status snapshots.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTLs.
// Get reports a miss with found=false rather than an error so callers
// can fall through to the database without unwrapping sentinel errors.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
