// Package sequence builds concrete target note sequences from exercise
// definitions, transposed to a singer's range and scaled by difficulty.
package sequence

import (
	"math"
	"sort"

	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
)

const (
	// instanceGapSec separates repeated exercise instances.
	instanceGapSec = 1.0
	// glideStepSec is the nominal duration of one synthesized glide step.
	glideStepSec  = 0.2
	minGlideSteps = 4
	maxGlideSteps = 24
)

// Result is a built sequence: ordered notes, one segment per instance, and
// the total playback duration including the tail.
type Result struct {
	Notes     []model.ReferenceNote
	Segments  []model.TargetSegment
	TotalSec  float64
	Transpose int
}

// Empty reports whether the build produced no playable notes.
func (r Result) Empty() bool {
	return len(r.Notes) == 0
}

// Multiplier returns the tempo multiplier for a difficulty. Higher
// difficulties run faster, so their multiplier is smaller.
func Multiplier(d model.Difficulty) float64 {
	switch d {
	case model.DifficultyEasy:
		return 1.25
	case model.DifficultyHard:
		return 0.8
	default:
		return 1.0
	}
}

// Build produces the concrete note sequence for an exercise, fitted to the
// singer's [lowestMidi, highestMidi] range and scaled by difficulty. Lead-in
// shifts the whole sequence so the first note starts after leadInSec.
//
// Multi-instance exercises repeat at every valid tonic within range; if no
// tonic fits, the result is empty and the caller falls back to an
// untransposed run. Single-instance exercises clamp instead of failing.
func Build(ex exercise.Exercise, lowestMidi, highestMidi int, diff model.Difficulty, leadInSec float64) Result {
	if len(ex.Segments) == 0 {
		return Result{}
	}
	segments := make([]exercise.SegmentSpec, len(ex.Segments))
	copy(segments, ex.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSec < segments[j].StartSec
	})

	mult := Multiplier(diff)
	specLow, specHigh := ex.MidiRange()

	if !ex.MultiInstance {
		offset := fitOffset(specLow, specHigh, lowestMidi, highestMidi)
		res := Result{Transpose: offset}
		end := appendInstance(&res, segments, offset, mult, leadInSec, 0)
		if res.Empty() {
			return Result{}
		}
		res.TotalSec = end + ex.TailSec
		return res
	}

	step := ex.StepSemitones
	if step <= 0 {
		step = 1
	}
	minOffset := lowestMidi - specLow
	maxOffset := highestMidi - specHigh
	if maxOffset < minOffset {
		return Result{}
	}

	res := Result{Transpose: minOffset}
	cursor := leadInSec
	last := leadInSec
	index := 0
	for offset := minOffset; offset <= maxOffset; offset += step {
		end := appendInstance(&res, segments, offset, mult, cursor, index)
		last = end
		cursor = end + instanceGapSec
		index++
	}
	if res.Empty() {
		return Result{}
	}
	res.TotalSec = last + ex.TailSec
	return res
}

// fitOffset centers the exercise's nominal range inside the singer's range,
// clamping when the exercise is wider than the range.
func fitOffset(specLow, specHigh, low, high int) int {
	specCenter := float64(specLow+specHigh) / 2
	rangeCenter := float64(low+high) / 2
	offset := int(math.Round(rangeCenter - specCenter))
	if specHigh+offset > high {
		offset = high - specHigh
	}
	if specLow+offset < low {
		offset = low - specLow
	}
	return offset
}

// appendInstance renders one transposed instance of the segment list starting
// at cursor and records its covering segment. Returns the instance end time.
func appendInstance(res *Result, segments []exercise.SegmentSpec, transpose int, mult, cursor float64, index int) float64 {
	start := cursor
	end := cursor
	for _, seg := range segments {
		segStart := cursor + seg.StartSec*mult
		segEnd := cursor + seg.EndSec*mult
		if segEnd > end {
			end = segEnd
		}
		switch seg.Kind {
		case exercise.KindRest:
			continue
		case exercise.KindGlide:
			res.Notes = append(res.Notes, glideSteps(seg, transpose, segStart, segEnd)...)
		default:
			res.Notes = append(res.Notes, model.ReferenceNote{
				StartSec: segStart,
				EndSec:   segEnd,
				Midi:     seg.Midi + transpose,
				Label:    seg.Label,
			})
		}
	}
	res.Segments = append(res.Segments, model.TargetSegment{
		Index:             index,
		StartSec:          start,
		EndSec:            end,
		TransposeSemitone: transpose,
	})
	return end
}

// glideSteps synthesizes short discrete steps linearly interpolating the
// glide's MIDI value, each step roughly glideStepSec long.
func glideSteps(seg exercise.SegmentSpec, transpose int, startSec, endSec float64) []model.ReferenceNote {
	dur := endSec - startSec
	n := int(math.Round(dur / glideStepSec))
	if n < minGlideSteps {
		n = minGlideSteps
	}
	if n > maxGlideSteps {
		n = maxGlideSteps
	}
	from := float64(seg.Midi + transpose)
	to := float64(seg.EndMidi + transpose)
	stepDur := dur / float64(n)
	notes := make([]model.ReferenceNote, 0, n)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		note := model.ReferenceNote{
			StartSec:   startSec + float64(i)*stepDur,
			EndSec:     startSec + float64(i+1)*stepDur,
			Midi:       int(math.Round(from + (to-from)*frac)),
			GlideStart: i == 0,
			GlideEnd:   i == n-1,
		}
		if i == 0 {
			note.Label = seg.Label
		}
		notes = append(notes, note)
	}
	return notes
}
