// Package ratelimit provides a fixed-window request counter keyed by client identifier.
//
// A Limiter is an explicitly constructed value owned by the application root; there is
// no package-level state. Expired windows are removed by Sweep, which Start runs on a
// ticker until its context is cancelled.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults for the two limiter profiles used by the API.
const (
	PublicMax    = 100
	PublicWindow = 15 * time.Minute
	StrictMax    = 10
	StrictWindow = time.Minute
)

// Limiter counts requests per identifier inside a fixed window.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	max     int
	window  time.Duration
	now     func() time.Time
}

type record struct {
	count   int
	resetAt time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter allowing max requests per window for each identifier.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		records: make(map[string]*record),
		max:     max,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewPublic returns the lenient profile guarding public bulletin lookups.
func NewPublic(opts ...Option) *Limiter {
	return New(PublicMax, PublicWindow, opts...)
}

// NewStrict returns the profile for sensitive endpoints.
func NewStrict(opts ...Option) *Limiter {
	return New(StrictMax, StrictWindow, opts...)
}

// Allow reports whether a request from id fits in the current window and counts it.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[id]
	if !ok || now.After(rec.resetAt) {
		l.records[id] = &record{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if rec.count >= l.max {
		return false
	}
	rec.count++
	return true
}

// Remaining returns how many requests id may still make in its window.
func (l *Limiter) Remaining(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok || l.now().After(rec.resetAt) {
		return l.max
	}
	if remaining := l.max - rec.count; remaining > 0 {
		return remaining
	}
	return 0
}

// RetryAfter returns the time left until id's window resets, zero when not limited.
func (l *Limiter) RetryAfter(id string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return 0
	}
	if wait := rec.resetAt.Sub(l.now()); wait > 0 {
		return wait
	}
	return 0
}

// Reset forgets the window for id.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, id)
}

// Sweep deletes every expired record and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Start sweeps expired records every interval until ctx is done.
func (l *Limiter) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
