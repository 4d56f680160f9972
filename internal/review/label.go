package review

import (
	"fmt"

	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
)

// Labeler attempts to name a segment from its enclosed target notes.
// Labelers are pure and may decline.
type Labeler func(notes []model.ReferenceNote, seg model.TargetSegment) (string, bool)

// labelStrategies maps exercise families to their pattern-aware labelers,
// tried in priority order before the generic fallbacks. The heuristics are
// best-effort UI labeling and degrade gracefully rather than fail.
var labelStrategies = map[exercise.Family][]Labeler{
	exercise.FamilySiren: {sirenLabel, riseLabel},
	exercise.FamilySlide: {riseLabel},
	exercise.FamilyScale: {tonicLabel},
}

// LabelSegment names a segment for the jump list. Family strategies run
// first; when none match it falls back to the nearest start/end notes and
// finally to a transposition-derived estimate.
func LabelSegment(family exercise.Family, notes []model.ReferenceNote, seg model.TargetSegment, baseMidi int) string {
	for _, strategy := range labelStrategies[family] {
		if label, ok := strategy(enclosed(notes, seg), seg); ok {
			return label
		}
	}
	if label, ok := edgeLabel(enclosed(notes, seg), seg); ok {
		return label
	}
	return transposeLabel(seg, baseMidi)
}

// enclosed returns the notes whose midpoint falls inside the segment.
func enclosed(notes []model.ReferenceNote, seg model.TargetSegment) []model.ReferenceNote {
	out := make([]model.ReferenceNote, 0, len(notes))
	for _, n := range notes {
		mid := (n.StartSec + n.EndSec) / 2
		if mid >= seg.StartSec && mid <= seg.EndSec {
			out = append(out, n)
		}
	}
	return out
}

// sirenLabel matches the three-point low-high-low siren pattern.
func sirenLabel(notes []model.ReferenceNote, _ model.TargetSegment) (string, bool) {
	if len(notes) < 3 {
		return "", false
	}
	first := notes[0]
	last := notes[len(notes)-1]
	peak := notes[0]
	for _, n := range notes {
		if n.Midi > peak.Midi {
			peak = n
		}
	}
	if peak.Midi <= first.Midi || peak.Midi <= last.Midi {
		return "", false
	}
	return fmt.Sprintf("%s–%s–%s",
		pitch.MidiToName(float64(first.Midi)),
		pitch.MidiToName(float64(peak.Midi)),
		pitch.MidiToName(float64(last.Midi))), true
}

// riseLabel matches the two-point low-high slide pattern.
func riseLabel(notes []model.ReferenceNote, _ model.TargetSegment) (string, bool) {
	if len(notes) < 2 {
		return "", false
	}
	first := notes[0]
	last := notes[len(notes)-1]
	if last.Midi == first.Midi {
		return "", false
	}
	return fmt.Sprintf("%s–%s",
		pitch.MidiToName(float64(first.Midi)),
		pitch.MidiToName(float64(last.Midi))), true
}

// tonicLabel names a scale instance by its tonic, the first enclosed note.
func tonicLabel(notes []model.ReferenceNote, _ model.TargetSegment) (string, bool) {
	if len(notes) == 0 {
		return "", false
	}
	return pitch.MidiToName(float64(notes[0].Midi)), true
}

// edgeLabel is the generic fallback: nearest start and end notes.
func edgeLabel(notes []model.ReferenceNote, _ model.TargetSegment) (string, bool) {
	if len(notes) == 0 {
		return "", false
	}
	first := notes[0]
	last := notes[len(notes)-1]
	if first.Midi == last.Midi {
		return pitch.MidiToName(float64(first.Midi)), true
	}
	return fmt.Sprintf("%s–%s",
		pitch.MidiToName(float64(first.Midi)),
		pitch.MidiToName(float64(last.Midi))), true
}

// transposeLabel estimates a label from the segment's transposition when no
// enclosed notes are available.
func transposeLabel(seg model.TargetSegment, baseMidi int) string {
	return pitch.MidiToName(float64(baseMidi + seg.TransposeSemitone))
}
