// Package resilience provides the failure-isolation primitives guarding the
// TTS providers: per-provider circuit breakers, per-voice failure cooldowns,
// retry with exponential backoff, and the provider fallback chain that
// composes them.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vexofm/vexo/internal/observe"
)

// ErrBreakerOpen is returned by [Breaker.Execute] while the breaker's reset
// window has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// Breaker is a fail-fast circuit breaker. Consecutive failures up to the
// threshold open the breaker for the reset window; any success closes it.
type Breaker struct {
	name      string
	threshold int
	reset     time.Duration

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewBreaker creates a Breaker that opens after threshold consecutive
// failures and stays open for the reset window.
func NewBreaker(name string, threshold int, reset time.Duration) *Breaker {
	return &Breaker{name: name, threshold: threshold, reset: reset}
}

// Execute runs fn unless the breaker is open, in which case it fails fast
// with [ErrBreakerOpen]. Success resets the failure count; failure
// increments it and opens the breaker at the threshold.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if time.Now().Before(b.openUntil) {
		b.mu.Unlock()
		return fmt.Errorf("provider %s: %w", b.name, ErrBreakerOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.openUntil = time.Time{}
		return nil
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = time.Now().Add(b.reset)
		observe.DefaultMetrics().RecordBreakerOpen(context.Background(), b.name)
		slog.Warn("provider breaker opened",
			"provider", b.name,
			"failures", b.failures,
			"reset", b.reset,
		)
	}
	return err
}

// Open reports whether the breaker currently rejects calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.openUntil)
}
