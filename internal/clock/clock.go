// Package clock provides the single reconciled time source for a playback
// session, merging a free-running ticker with a polled audio-player position.
package clock

import (
	"sync"
	"time"
)

// PositionFunc reports the audio player position in seconds. ok is false when
// no position is available yet.
type PositionFunc func() (sec float64, ok bool)

// Clock is the master time source for one playback session.
//
// While frozen, Now returns the start offset unchanged until the position
// provider first reports a valid position, so visuals cannot race ahead of
// audio start latency. Without a provider the clock runs in ticker mode:
// start offset plus elapsed wall clock, minus latency compensation.
type Clock struct {
	mu            sync.Mutex
	running       bool
	frozen        bool
	startOffset   float64
	latencyCompMs float64
	epoch         time.Time
	provider      PositionFunc

	// now is a wall-clock hook for tests.
	now func() time.Time
}

// New returns a stopped clock with the given latency compensation.
func New(latencyCompMs float64) *Clock {
	return &Clock{latencyCompMs: latencyCompMs, now: time.Now}
}

// SetPositionProvider installs the audio position source. A nil provider
// leaves the clock permanently in ticker mode, which is the defined mode for
// sessions with no recorded audio.
func (c *Clock) SetPositionProvider(fn PositionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = fn
}

// Start resets the clock to offsetSec. With freezeUntilAudio, Now stays
// pinned at offsetSec until the provider reports a valid position.
func (c *Clock) Start(offsetSec float64, freezeUntilAudio bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.frozen = freezeUntilAudio
	c.startOffset = offsetSec
	c.epoch = c.now()
}

// Now returns the session time in seconds.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.startOffset
	}
	if c.frozen {
		if c.provider != nil {
			if pos, ok := c.provider(); ok && pos > 0 {
				c.frozen = false
				c.epoch = c.now()
				c.startOffset = pos
				return pos
			}
		}
		return c.startOffset
	}
	if c.provider != nil {
		if pos, ok := c.provider(); ok {
			// Re-anchor the ticker fallback so a provider dropout
			// continues from the last known position.
			c.startOffset = pos
			c.epoch = c.now()
			return pos
		}
	}
	return c.startOffset + c.now().Sub(c.epoch).Seconds() - c.latencyCompMs/1000
}

// Pause stops the clock at its current position.
func (c *Clock) Pause() {
	pos := c.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.startOffset = pos
}

// Seek moves the clock to sec and resets elapsed accounting. Seeking
// invalidates a frozen state.
func (c *Clock) Seek(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startOffset = sec
	c.epoch = c.now()
	c.frozen = false
}

// Running reports whether the clock has been started and not paused.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Frozen reports whether the clock is still waiting for audio to start.
func (c *Clock) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}
