// Package scoring evaluates captured pitch frames against a target sequence.
package scoring

import (
	"math"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
)

// Bucket classifies a frame's pitch accuracy.
type Bucket int

// Accuracy buckets. Boundary values are inclusive to their lower bucket:
// exactly 25 cents is on, exactly 60 cents is near.
const (
	BucketOn Bucket = iota
	BucketNear
	BucketOff
)

const (
	onCents   = 25.0
	nearCents = 60.0
	// smoothWindow is the median window applied to voiced midi values
	// before classification, matching the offline analyzer.
	smoothWindow = 3
)

// Classify buckets a frame by its absolute cents error. Unvoiced frames
// are always off.
func Classify(cents float64, voiced bool) Bucket {
	if !voiced {
		return BucketOff
	}
	abs := math.Abs(cents)
	switch {
	case abs <= onCents:
		return BucketOn
	case abs <= nearCents:
		return BucketNear
	default:
		return BucketOff
	}
}

// NoteScore is the per-note accuracy breakdown.
type NoteScore struct {
	Note  model.ReferenceNote
	On    int
	Near  int
	Off   int
	Score float64
}

// Result is a completed take's evaluation.
type Result struct {
	Notes     []NoteScore
	Overall   float64
	Stars     int
	SubScores map[string]float64
}

// Score evaluates captured frames against the target notes. Each frame is
// assigned to the note whose window contains it; frames outside all windows
// are ignored. Per-note score is the on fraction of its frames, zero when no
// frames land in the window. Overall is the mean of per-note scores on a
// 0-100 scale.
func Score(frames []model.PitchFrame, notes []model.ReferenceNote) Result {
	res := Result{
		Notes:     make([]NoteScore, len(notes)),
		SubScores: map[string]float64{},
	}
	for i, n := range notes {
		res.Notes[i].Note = n
	}
	if len(notes) == 0 {
		return res
	}

	smoothed := smoothFrames(frames)
	for _, f := range smoothed {
		idx, ok := noteAt(notes, f.Time)
		if !ok {
			// Frames between notes belong to no window and are not scored.
			continue
		}
		target := float64(notes[idx].Midi)
		cents := pitch.Cents(f.Midi, target)
		switch Classify(cents, f.Voiced) {
		case BucketOn:
			res.Notes[idx].On++
		case BucketNear:
			res.Notes[idx].Near++
		default:
			res.Notes[idx].Off++
		}
	}

	var sum float64
	onTotal, total := 0, 0
	for i := range res.Notes {
		ns := &res.Notes[i]
		count := ns.On + ns.Near + ns.Off
		if count > 0 {
			ns.Score = float64(ns.On) / float64(count)
		}
		sum += ns.Score
		onTotal += ns.On
		total += count
	}
	res.Overall = clampScore(sum / float64(len(notes)) * 100)
	res.Stars = Stars(res.Overall)
	res.SubScores["pitch"] = res.Overall
	if total > 0 {
		res.SubScores["on_ratio"] = float64(onTotal) / float64(total) * 100
	}
	return res
}

// Stars maps a 0-100 score to a 1-5 star rating.
func Stars(score float64) int {
	switch {
	case score >= 90:
		return 5
	case score >= 75:
		return 4
	case score >= 60:
		return 3
	case score >= 40:
		return 2
	default:
		return 1
	}
}

// smoothFrames median-filters the voiced midi values, leaving unvoiced
// frames untouched.
func smoothFrames(frames []model.PitchFrame) []model.PitchFrame {
	voicedIdx := make([]int, 0, len(frames))
	voicedMidi := make([]float64, 0, len(frames))
	for i, f := range frames {
		if f.Voiced {
			voicedIdx = append(voicedIdx, i)
			voicedMidi = append(voicedMidi, f.Midi)
		}
	}
	out := make([]model.PitchFrame, len(frames))
	copy(out, frames)
	filtered := pitch.MedianSmooth(voicedMidi, smoothWindow)
	for j, i := range voicedIdx {
		out[i].Midi = filtered[j]
	}
	return out
}

// noteAt returns the index of the note whose window contains t.
func noteAt(notes []model.ReferenceNote, t float64) (int, bool) {
	for i, n := range notes {
		if t >= n.StartSec && t < n.EndSec {
			return i, true
		}
	}
	return 0, false
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
