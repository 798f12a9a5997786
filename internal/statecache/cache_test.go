package statecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetServedWithinWindow(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, time.Minute)

	ctx := context.Background()
	first, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected one fetch within the window, got %d/%d", first, second)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, time.Minute)

	ctx := context.Background()
	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Invalidate()
	got, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected refetch after invalidation, got %d", got)
	}
}

func TestFetchErrorLeavesCacheStale(t *testing.T) {
	fail := errors.New("upstream down")
	var failing atomic.Bool
	var calls atomic.Int32
	c := New(func(context.Context) (int, error) {
		if failing.Load() {
			return 0, fail
		}
		return int(calls.Add(1)), nil
	}, time.Minute)

	ctx := context.Background()
	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}

	failing.Store(true)
	c.Invalidate()
	if _, err := c.Get(ctx); !errors.Is(err, fail) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	// The stale value is still peekable and the next Get retries.
	if v, ok := c.Peek(); !ok || v != 1 {
		t.Fatalf("expected stale value 1, got %d/%v", v, ok)
	}
	failing.Store(false)
	if got, err := c.Get(ctx); err != nil || got != 2 {
		t.Fatalf("expected recovery fetch, got %d/%v", got, err)
	}
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}, time.Minute)

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.Get(ctx); err != nil || v != 42 {
				t.Errorf("Get = %d/%v", v, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", got)
	}
}

func TestSubscribeSeesEveryFetch(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, time.Minute)

	var mu sync.Mutex
	var seen []int
	c.Subscribe(func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	ctx := context.Background()
	_, _ = c.Get(ctx)
	c.Invalidate()
	_, _ = c.Get(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}
