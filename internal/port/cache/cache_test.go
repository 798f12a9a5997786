package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/TaskForge/internal/adapter/ristretto"
	"github.com/Strob0t/TaskForge/internal/port/cache"
)

// syncer is implemented by tiers whose writes are applied asynchronously.
type syncer interface {
	Wait()
}

func settle(c cache.Cache) {
	if s, ok := c.(syncer); ok {
		s.Wait()
	}
}

// contract exercises the behavior every cache tier must provide.
func contract(t *testing.T, c cache.Cache) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		if err := c.Set(ctx, "settings", []byte(`{"token_set":true}`), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		settle(c)
		val, found, err := c.Get(ctx, "settings")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !found {
			t.Fatal("expected hit after Set")
		}
		if string(val) != `{"token_set":true}` {
			t.Fatalf("got %q", val)
		}
	})

	t.Run("MissWithoutError", func(t *testing.T) {
		_, found, err := c.Get(ctx, "never-written")
		if err != nil {
			t.Fatalf("a miss must not error: %v", err)
		}
		if found {
			t.Fatal("expected miss")
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		_ = c.Set(ctx, "webhook_status", []byte("x"), time.Minute)
		settle(c)
		if err := c.Delete(ctx, "webhook_status"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := c.Delete(ctx, "webhook_status"); err != nil {
			t.Fatalf("repeat Delete must not error: %v", err)
		}
		_, found, _ := c.Get(ctx, "webhook_status")
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("OverwriteKeepsLatest", func(t *testing.T) {
		_ = c.Set(ctx, "settings", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "settings", []byte("v2"), time.Minute)
		settle(c)
		val, found, err := c.Get(ctx, "settings")
		if err != nil || !found {
			t.Fatalf("Get: found=%v err=%v", found, err)
		}
		if string(val) != "v2" {
			t.Fatalf("got %q, want v2", val)
		}
	})
}

func TestRistrettoSatisfiesCacheContract(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatalf("ristretto.New: %v", err)
	}
	defer c.Close()
	contract(t, c)
}
