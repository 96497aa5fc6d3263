// Package ratelimit implements a fixed-window request limiter.
//
// The window for an identifier starts on its first request and resets
// entirely once it elapses. Burst traffic straddling a window boundary can
// therefore admit up to twice the configured maximum in a short span; that
// is the accepted tradeoff of the fixed-window design, not a defect.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Result describes the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per identifier inside fixed windows. The zero
// value is not usable; construct with New.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func New() *Limiter {
	return &Limiter{windows: make(map[string]*window)}
}

// Allow records a request for id and reports whether it fits inside the
// current window of the given size. A fresh or elapsed window restarts the
// count at 1.
func (l *Limiter) Allow(id string, max int, windowSize time.Duration) Result {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[id]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(windowSize)}
		l.windows[id] = w
		return Result{Allowed: true, Remaining: max - 1, ResetAt: w.resetAt}
	}

	if w.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Remaining: max - w.count, ResetAt: w.resetAt}
}

// Sweep removes windows that elapsed before now. Callers run this
// periodically to keep the map from accumulating idle identifiers.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, id)
		}
	}
}

// Reset drops all tracked windows. Intended for test isolation.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
