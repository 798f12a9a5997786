package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream unavailable")

func fail(b *Breaker, times int) {
	for range times {
		_ = b.Execute(func() error { return errUpstream })
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(3, time.Second)

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("call was not admitted")
	}
	if b.State() != "closed" {
		t.Fatalf("state %q, want closed", b.State())
	}
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Second)
	fail(b, 3)

	if b.State() != "open" {
		t.Fatalf("state %q after threshold failures, want open", b.State())
	}
	err := b.Execute(func() error {
		t.Fatal("call admitted while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.clock = func() time.Time { return now }

	fail(b, 2)
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected rejection before cooldown, got %v", err)
	}

	now = now.Add(2 * time.Second)

	probed := false
	if err := b.Execute(func() error { probed = true; return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !probed {
		t.Fatal("probe was not admitted after cooldown")
	}
	if b.State() != "closed" {
		t.Fatalf("state %q after successful probe, want closed", b.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.clock = func() time.Time { return now }

	fail(b, 2)
	now = now.Add(2 * time.Second)
	fail(b, 1)

	if b.State() != "open" {
		t.Fatalf("state %q after failed probe, want open", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected rejection after failed probe, got %v", err)
	}
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := NewBreaker(3, time.Second)

	fail(b, 2)
	_ = b.Execute(func() error { return nil })
	fail(b, 2)

	if b.State() != "closed" {
		t.Fatalf("state %q, want closed since no streak reached threshold", b.State())
	}
}
