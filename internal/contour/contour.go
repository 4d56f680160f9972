// Package contour serializes captured pitch contours, target notes and
// segments. Parsing is tolerant: unknown fields are ignored and malformed
// input yields empty collections, never an error past this boundary.
package contour

import (
	"encoding/json"
	"math"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
)

type wireFrame struct {
	T    float64  `json:"t"`
	Hz   *float64 `json:"hz,omitempty"`
	Midi *float64 `json:"midi,omitempty"`
}

type wireNote struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Midi    int    `json:"midi"`
	Label   string `json:"label,omitempty"`
}

type wireSegment struct {
	SegmentIndex      int   `json:"segmentIndex"`
	StartMs           int64 `json:"startMs"`
	EndMs             int64 `json:"endMs"`
	TransposeSemitone int   `json:"transposeSemitone"`
}

// ParseContour decodes a persisted contour. Malformed JSON yields an empty
// contour. A frame with no hz and no midi is an unvoiced gap marker.
func ParseContour(data []byte) []model.PitchFrame {
	var raw []wireFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	frames := make([]model.PitchFrame, 0, len(raw))
	for _, w := range raw {
		f := model.PitchFrame{Time: w.T}
		switch {
		case w.Hz != nil && *w.Hz > 0 && !math.IsInf(*w.Hz, 0) && !math.IsNaN(*w.Hz):
			f.Hz = *w.Hz
			f.Voiced = true
			if w.Midi != nil {
				f.Midi = *w.Midi
			} else {
				f.Midi = pitch.HzToMidi(f.Hz)
			}
		case w.Midi != nil:
			f.Midi = *w.Midi
			f.Hz = pitch.MidiToHz(f.Midi)
			f.Voiced = true
		}
		frames = append(frames, f)
	}
	return frames
}

// EncodeContour serializes frames for persistence. Unvoiced frames carry
// only their timestamp.
func EncodeContour(frames []model.PitchFrame) []byte {
	raw := make([]wireFrame, 0, len(frames))
	for _, f := range frames {
		w := wireFrame{T: f.Time}
		if f.Voiced {
			hz := f.Hz
			midi := f.Midi
			w.Hz = &hz
			w.Midi = &midi
		}
		raw = append(raw, w)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// ParseTargets decodes persisted target notes. Malformed JSON yields nil.
func ParseTargets(data []byte) []model.ReferenceNote {
	var raw []wireNote
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	notes := make([]model.ReferenceNote, 0, len(raw))
	for _, w := range raw {
		notes = append(notes, model.ReferenceNote{
			StartSec: float64(w.StartMs) / 1000,
			EndSec:   float64(w.EndMs) / 1000,
			Midi:     w.Midi,
			Label:    w.Label,
		})
	}
	return notes
}

// EncodeTargets serializes target notes with millisecond timestamps.
func EncodeTargets(notes []model.ReferenceNote) []byte {
	raw := make([]wireNote, 0, len(notes))
	for _, n := range notes {
		raw = append(raw, wireNote{
			StartMs: int64(math.Round(n.StartSec * 1000)),
			EndMs:   int64(math.Round(n.EndSec * 1000)),
			Midi:    n.Midi,
			Label:   n.Label,
		})
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// ParseSegments decodes persisted segments. Malformed JSON yields nil.
func ParseSegments(data []byte) []model.TargetSegment {
	var raw []wireSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	segments := make([]model.TargetSegment, 0, len(raw))
	for _, w := range raw {
		segments = append(segments, model.TargetSegment{
			Index:             w.SegmentIndex,
			StartSec:          float64(w.StartMs) / 1000,
			EndSec:            float64(w.EndMs) / 1000,
			TransposeSemitone: w.TransposeSemitone,
		})
	}
	return segments
}

// EncodeSegments serializes segments with millisecond timestamps.
func EncodeSegments(segments []model.TargetSegment) []byte {
	raw := make([]wireSegment, 0, len(segments))
	for _, s := range segments {
		raw = append(raw, wireSegment{
			SegmentIndex:      s.Index,
			StartMs:           int64(math.Round(s.StartSec * 1000)),
			EndMs:             int64(math.Round(s.EndSec * 1000)),
			TransposeSemitone: s.TransposeSemitone,
		})
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return []byte("[]")
	}
	return data
}
