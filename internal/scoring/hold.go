package scoring

import "math"

// Hold defaults for sustained-note exercises.
const (
	DefaultHoldToleranceCents = 30.0
	DefaultHoldRequiredSec    = 3.0
)

// HoldTracker accumulates continuous on-pitch time for sustained-hold
// exercises. An interruption resets the continuous timer but not the
// cumulative history, which is kept for feedback.
type HoldTracker struct {
	ToleranceCents float64
	RequiredSec    float64

	contStart     float64
	inHold        bool
	lastTime      float64
	ContinuousSec float64
	BestSec       float64
	CumulativeSec float64
	Succeeded     bool
}

// NewHoldTracker returns a tracker with the given tolerance and required
// duration, substituting defaults for non-positive values.
func NewHoldTracker(toleranceCents, requiredSec float64) *HoldTracker {
	if toleranceCents <= 0 {
		toleranceCents = DefaultHoldToleranceCents
	}
	if requiredSec <= 0 {
		requiredSec = DefaultHoldRequiredSec
	}
	return &HoldTracker{ToleranceCents: toleranceCents, RequiredSec: requiredSec}
}

// Observe feeds one timed frame. Frames must arrive in time order.
func (h *HoldTracker) Observe(t, cents float64, voiced bool) {
	on := voiced && math.Abs(cents) <= h.ToleranceCents
	if on {
		if !h.inHold {
			h.inHold = true
			h.contStart = t
		} else {
			h.CumulativeSec += t - h.lastTime
		}
		h.ContinuousSec = t - h.contStart
		if h.ContinuousSec > h.BestSec {
			h.BestSec = h.ContinuousSec
		}
		if h.ContinuousSec >= h.RequiredSec {
			h.Succeeded = true
		}
	} else {
		h.inHold = false
		h.ContinuousSec = 0
	}
	h.lastTime = t
}

// StabilityScore returns the best continuous hold as a fraction of the
// required duration, on a 0-100 scale.
func (h *HoldTracker) StabilityScore() float64 {
	if h.RequiredSec <= 0 {
		return 0
	}
	score := h.BestSec / h.RequiredSec * 100
	return clampScore(score)
}
