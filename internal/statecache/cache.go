// Package statecache holds one remotely fetched value per cache,
// served within a staleness window. Concurrent callers of a stale
// cache share a single fetch; invalidation marks the value stale and
// the next read refetches. There is no automatic retry, a failed
// fetch surfaces its error and leaves the cache stale.
package statecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a single shared value refreshed through a fetch function.
type Cache[T any] struct {
	fetch func(ctx context.Context) (T, error)
	ttl   time.Duration

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
	subs      []func(T)

	sf singleflight.Group
}

// New creates a cache around a fetch function with the given
// staleness window.
func New[T any](fetch func(ctx context.Context) (T, error), ttl time.Duration) *Cache[T] {
	return &Cache[T]{fetch: fetch, ttl: ttl}
}

// Get returns the cached value when it is within the staleness window,
// otherwise it fetches. Concurrent callers on a stale cache share one
// in-flight fetch.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.valid && time.Since(c.fetchedAt) < c.ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do("fetch", func() (any, error) {
		fetched, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(fetched)
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Peek returns the last fetched value without triggering a fetch,
// stale or not. The second return reports whether a value exists.
func (c *Cache[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.valid
}

// Invalidate marks the value stale. The next Get refetches.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// Refresh invalidates and fetches in the background. Subscribers see
// the new value when the fetch succeeds; a failed fetch leaves the
// cache stale for the next Get to retry.
func (c *Cache[T]) Refresh(ctx context.Context) {
	c.Invalidate()
	go func() {
		_, _ = c.Get(ctx)
	}()
}

// Subscribe registers a callback invoked after every successful fetch.
func (c *Cache[T]) Subscribe(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Cache[T]) store(v T) {
	c.mu.Lock()
	c.value = v
	c.fetchedAt = time.Now()
	c.valid = true
	subs := make([]func(T), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
