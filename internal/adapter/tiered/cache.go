// Package tiered layers the in-process L1 cache over the shared L2 bucket.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/TaskForge/internal/port/cache"
)

// Cache reads through L1 into L2, backfilling L1 on an L2 hit. Writes go
// to both tiers. An unreachable L2 degrades to L1-only instead of failing
// reads, since the source of truth is always the database underneath.
type Cache struct {
	l1    cache.Cache
	l2    cache.Cache
	l1TTL time.Duration
}

// New builds a tiered cache. l1TTL bounds how long backfilled entries may
// outlive an invalidation performed by another instance.
func New(l1, l2 cache.Cache, l1TTL time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		slog.Warn("tiered cache: l2 read failed, treating as miss", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.l1.Set(ctx, key, val, c.l1TTL)
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete clears L2 before L1 so a concurrent Get cannot backfill L1 from
// an entry that is about to disappear.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l2.Delete(ctx, key); err != nil {
		return err
	}
	return c.l1.Delete(ctx, key)
}
