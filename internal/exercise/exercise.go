// Package exercise defines the exercise catalog and its segment specifications.
package exercise

// SegmentKind distinguishes sustained notes, glides and rests.
type SegmentKind int

// Segment kinds.
const (
	KindNote SegmentKind = iota
	KindGlide
	KindRest
)

// Family groups exercises whose target sequences share a recognizable
// note pattern, used for best-effort segment labeling during review.
type Family string

// Exercise families.
const (
	FamilySustain Family = "sustain"
	FamilyScale   Family = "scale"
	FamilySlide   Family = "slide"
	FamilySiren   Family = "siren"
)

// SegmentSpec is one abstract segment of an exercise, authored against the
// reference range. Midi values are nominal and transposed at build time.
type SegmentSpec struct {
	Kind           SegmentKind
	StartSec       float64
	EndSec         float64
	Midi           int
	EndMidi        int
	Label          string
	ToleranceCents float64
}

// Exercise is a static exercise definition.
type Exercise struct {
	ID            string
	Name          string
	CategoryID    string
	Family        Family
	Segments      []SegmentSpec
	MultiInstance bool
	StepSemitones int
	HoldSec       float64
	TailSec       float64
}

// Builtins returns the built-in exercise catalog.
func Builtins() []Exercise {
	return []Exercise{
		{
			ID:         "sustained-hold",
			Name:       "Sustained Hold",
			CategoryID: "breath",
			Family:     FamilySustain,
			HoldSec:    3.0,
			TailSec:    1.0,
			Segments: []SegmentSpec{
				{Kind: KindNote, StartSec: 0, EndSec: 4, Midi: 60, Label: "hold", ToleranceCents: 30},
			},
		},
		{
			ID:            "five-note-scale",
			Name:          "Five-Note Scale",
			CategoryID:    "agility",
			Family:        FamilyScale,
			MultiInstance: true,
			StepSemitones: 1,
			TailSec:       1.0,
			Segments: []SegmentSpec{
				{Kind: KindNote, StartSec: 0.0, EndSec: 0.5, Midi: 60, Label: "do", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 0.5, EndSec: 1.0, Midi: 62, Label: "re", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 1.0, EndSec: 1.5, Midi: 64, Label: "mi", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 1.5, EndSec: 2.0, Midi: 65, Label: "fa", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 2.0, EndSec: 2.5, Midi: 67, Label: "so", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 2.5, EndSec: 3.0, Midi: 65, Label: "fa", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 3.0, EndSec: 3.5, Midi: 64, Label: "mi", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 3.5, EndSec: 4.0, Midi: 62, Label: "re", ToleranceCents: 25},
				{Kind: KindNote, StartSec: 4.0, EndSec: 4.5, Midi: 60, Label: "do", ToleranceCents: 25},
			},
		},
		{
			ID:            "octave-slide",
			Name:          "Octave Slide",
			CategoryID:    "range",
			Family:        FamilySlide,
			MultiInstance: true,
			StepSemitones: 2,
			TailSec:       1.0,
			Segments: []SegmentSpec{
				{Kind: KindGlide, StartSec: 0, EndSec: 2, Midi: 55, EndMidi: 67, Label: "slide", ToleranceCents: 40},
			},
		},
		{
			ID:         "siren",
			Name:       "Siren",
			CategoryID: "range",
			Family:     FamilySiren,
			TailSec:    1.0,
			Segments: []SegmentSpec{
				{Kind: KindGlide, StartSec: 0, EndSec: 2, Midi: 55, EndMidi: 67, Label: "up", ToleranceCents: 40},
				{Kind: KindGlide, StartSec: 2, EndSec: 4, Midi: 67, EndMidi: 55, Label: "down", ToleranceCents: 40},
			},
		},
	}
}

// FindByID returns the exercise with the given id from the list.
func FindByID(exercises []Exercise, id string) (Exercise, bool) {
	for _, ex := range exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return Exercise{}, false
}

// FirstInCategories returns the first exercise whose category appears in the
// ordered category list. Earlier categories take priority.
func FirstInCategories(exercises []Exercise, categories []string) (Exercise, bool) {
	for _, cat := range categories {
		for _, ex := range exercises {
			if ex.CategoryID == cat {
				return ex, true
			}
		}
	}
	return Exercise{}, false
}

// MidiRange returns the lowest and highest nominal MIDI values of the
// exercise's segments, including glide endpoints. Rests are ignored.
func (e Exercise) MidiRange() (low, high int) {
	low, high = 0, 0
	first := true
	for _, seg := range e.Segments {
		if seg.Kind == KindRest {
			continue
		}
		lo, hi := seg.Midi, seg.Midi
		if seg.Kind == KindGlide {
			if seg.EndMidi < lo {
				lo = seg.EndMidi
			}
			if seg.EndMidi > hi {
				hi = seg.EndMidi
			}
		}
		if first {
			low, high = lo, hi
			first = false
			continue
		}
		if lo < low {
			low = lo
		}
		if hi > high {
			high = hi
		}
	}
	return low, high
}
