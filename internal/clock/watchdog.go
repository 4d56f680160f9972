package clock

import (
	"sync"
	"time"
)

// DefaultMaxStale is the position staleness threshold after which the
// controller should actively poll the player instead of waiting for the
// next position event.
const DefaultMaxStale = time.Second

// Watchdog tracks whether a pushed position stream has stalled. It is a
// liveness policy: when the last observed position has not advanced for
// longer than MaxStale, the owner should poll the player directly.
type Watchdog struct {
	MaxStale time.Duration

	mu          sync.Mutex
	lastPos     float64
	lastAdvance time.Time

	now func() time.Time
}

// NewWatchdog returns a watchdog with the given staleness threshold.
// A non-positive threshold falls back to DefaultMaxStale.
func NewWatchdog(maxStale time.Duration) *Watchdog {
	if maxStale <= 0 {
		maxStale = DefaultMaxStale
	}
	return &Watchdog{MaxStale: maxStale, now: time.Now}
}

// Observe records a position event. Only advancing positions reset the
// staleness timer.
func (w *Watchdog) Observe(pos float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastAdvance.IsZero() || pos > w.lastPos {
		w.lastPos = pos
		w.lastAdvance = w.now()
	}
}

// Stale reports whether the position has not advanced for longer than
// MaxStale. A watchdog that has never observed a position is not stale.
func (w *Watchdog) Stale() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastAdvance.IsZero() {
		return false
	}
	return w.now().Sub(w.lastAdvance) > w.MaxStale
}

// Reset clears the observation history, e.g. after a seek.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastPos = 0
	w.lastAdvance = time.Time{}
}
