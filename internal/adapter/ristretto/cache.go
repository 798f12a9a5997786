// Package ristretto provides the in-process L1 tier of the settings cache,
// backed by dgraph-io/ristretto.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a size-bounded in-process cache. Cost is the byte length of the
// stored value, so maxBytes caps the total cached payload.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New builds a cache holding at most maxBytes of values. The workload is a
// handful of small JSON snapshots, so the counter estimate stays modest.
func New(maxBytes int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxBytes / 10,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Wait blocks until buffered writes have been applied. Sets are
// asynchronous in ristretto, so readers that need read-your-write
// semantics call this first.
func (c *Cache) Wait() {
	c.inner.Wait()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
