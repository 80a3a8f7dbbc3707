package verify

import (
	"sync"
	"time"
)

// Breaker is a rolling-window circuit breaker for the lookup endpoint. After
// Threshold transport failures inside Window, online verification is
// suspended; once ResetAfter has elapsed a single probe is allowed through
// (half-open), and a success closes the circuit again.
type Breaker struct {
	mu         sync.Mutex
	threshold  int
	window     time.Duration
	resetAfter time.Duration

	failures []time.Time
	open     bool
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// Breaker defaults. Five failures in a minute is well past bad luck.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerWindow    = time.Minute
	DefaultBreakerReset     = 30 * time.Second
)

// NewBreaker returns a breaker with the given limits; non-positive arguments
// use the defaults.
func NewBreaker(threshold int, window, resetAfter time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if window <= 0 {
		window = DefaultBreakerWindow
	}
	if resetAfter <= 0 {
		resetAfter = DefaultBreakerReset
	}
	return &Breaker{
		threshold:  threshold,
		window:     window,
		resetAfter: resetAfter,
		now:        time.Now,
	}
}

// Allow reports whether a network call may proceed. While open, it permits a
// single half-open probe once the reset period has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.openedAt) >= b.resetAfter {
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the circuit. Failures already noted stay in the
// rolling window: a flapping endpoint that interleaves successes must still
// trip once enough failures accumulate inside the window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.probing = false
}

// RecordFailure notes a transport failure and opens the circuit when the
// rolling window fills.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if b.open {
		// Failed half-open probe: stay open and restart the reset clock.
		b.openedAt = now
		b.probing = false
		return
	}
	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
	if len(b.failures) >= b.threshold {
		b.open = true
		b.openedAt = now
		b.probing = false
		b.failures = b.failures[:0]
	}
}

// Open reports whether the circuit is currently open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
