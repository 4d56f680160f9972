// Package review reconstructs a completed take for segment-level replay.
package review

import (
	"github.com/adiwenz/crescendo-sub001/internal/contour"
	"github.com/adiwenz/crescendo-sub001/internal/model"
)

const (
	// overlapToleranceSec widens segment windows when matching recorded
	// frames, so a segment is not dropped over boundary jitter.
	overlapToleranceSec = 0.2
	// trailingSlackSec keeps segments that start just past the recorded
	// end, where the singer ran out of takes mid-exercise.
	trailingSlackSec = 0.5
	// seekLeadInSec of context is replayed before a jumped-to segment.
	seekLeadInSec = 2.0
)

// Take is a reconstructed attempt: captured frames plus the target overlay.
type Take struct {
	Frames   []model.PitchFrame
	Notes    []model.ReferenceNote
	Segments []model.TargetSegment
}

// FromAttempt rebuilds a take from a persisted attempt. All three JSON
// payloads parse tolerantly; a missing or malformed payload yields the
// corresponding empty collection.
func FromAttempt(a model.ExerciseAttempt) Take {
	return Take{
		Frames:   contour.ParseContour([]byte(a.ContourJSON)),
		Notes:    contour.ParseTargets([]byte(a.TargetNotesJSON)),
		Segments: contour.ParseSegments([]byte(a.SegmentsJSON)),
	}
}

// Empty reports whether the take has no recorded contour.
func (t Take) Empty() bool {
	return len(t.Frames) == 0
}

// RecordedEnd returns the actual recorded duration, the latest frame time.
func RecordedEnd(frames []model.PitchFrame) float64 {
	end := 0.0
	for _, f := range frames {
		if f.Time > end {
			end = f.Time
		}
	}
	return end
}

// FilterSegments keeps only segments with temporal overlap with at least one
// recorded frame and a start no later than the recorded end plus slack.
// Segments with no corresponding audio must never appear as dead jump links.
// Filtering is idempotent: refiltering the result with the same frames is a
// no-op.
func FilterSegments(segments []model.TargetSegment, frames []model.PitchFrame) []model.TargetSegment {
	if len(frames) == 0 {
		return nil
	}
	end := RecordedEnd(frames)
	out := make([]model.TargetSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.StartSec > end+trailingSlackSec {
			continue
		}
		if hasFrameIn(frames, seg.StartSec-overlapToleranceSec, seg.EndSec+overlapToleranceSec) {
			out = append(out, seg)
		}
	}
	return out
}

func hasFrameIn(frames []model.PitchFrame, from, to float64) bool {
	for _, f := range frames {
		if f.Time >= from && f.Time <= to {
			return true
		}
	}
	return false
}

// SeekTarget returns the playback position for jumping to a segment: two
// seconds of lead-in context, clamped at the start of the take.
func SeekTarget(seg model.TargetSegment) float64 {
	t := seg.StartSec - seekLeadInSec
	if t < 0 {
		return 0
	}
	return t
}

// Replay applies the manual and diagnosed offsets to the independently
// scheduled reference track. The recorded-audio track is the ground truth
// the visuals are locked to and is never shifted.
type Replay struct {
	ManualOffsetMs float64
	SystemOffsetMs float64
}

// ReferenceTime maps a recorded-audio time to the reference track timeline.
func (r Replay) ReferenceTime(recordedSec float64) float64 {
	return recordedSec + (r.ManualOffsetMs+r.SystemOffsetMs)/1000
}
