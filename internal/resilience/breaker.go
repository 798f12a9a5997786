// Package resilience guards outbound calls to the Asana API and the
// taskforge server with a circuit breaker.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the call while the breaker
// is rejecting traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker counts consecutive failures and trips open once threshold is
// reached. After cooldown it lets one probe through; the probe's outcome
// decides whether the breaker closes again or re-opens.
type Breaker struct {
	mu        sync.Mutex
	state     state
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	clock     func() time.Time
}

// NewBreaker builds a breaker that opens after maxFailures consecutive
// failures and probes again once timeout has elapsed.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		threshold: maxFailures,
		cooldown:  timeout,
		clock:     time.Now,
	}
}

// Execute runs fn unless the breaker is open, and feeds the result back
// into the failure count.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()
	b.record(err)
	return err
}

// State reports the current state as "closed", "open" or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if b.clock().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = stateHalfOpen
	}
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.state = stateClosed
		return
	}
	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.threshold {
		b.state = stateOpen
		b.openedAt = b.clock()
	}
}
