package sequence

import (
	"testing"

	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
)

func scaleExercise() exercise.Exercise {
	ex, ok := exercise.FindByID(exercise.Builtins(), "five-note-scale")
	if !ok {
		panic("missing builtin")
	}
	return ex
}

func TestBuildSortedNonOverlapping(t *testing.T) {
	res := Build(scaleExercise(), 48, 72, model.DifficultyMedium, 0)
	if res.Empty() {
		t.Fatalf("expected non-empty sequence")
	}
	for i := 1; i < len(res.Notes); i++ {
		prev, cur := res.Notes[i-1], res.Notes[i]
		if cur.StartSec < prev.StartSec {
			t.Fatalf("notes out of order at %d", i)
		}
		if cur.StartSec < prev.EndSec-1e-9 {
			t.Fatalf("overlapping notes at %d: %f < %f", i, cur.StartSec, prev.EndSec)
		}
	}
	for _, n := range res.Notes {
		if n.StartSec >= n.EndSec {
			t.Fatalf("note with non-positive duration: %+v", n)
		}
	}
}

func TestBuildDifficultyMonotonic(t *testing.T) {
	ex := scaleExercise()
	easy := Build(ex, 48, 72, model.DifficultyEasy, 0)
	medium := Build(ex, 48, 72, model.DifficultyMedium, 0)
	hard := Build(ex, 48, 72, model.DifficultyHard, 0)
	if easy.Empty() || medium.Empty() || hard.Empty() {
		t.Fatalf("expected non-empty sequences")
	}
	if !(easy.TotalSec >= medium.TotalSec && medium.TotalSec >= hard.TotalSec) {
		t.Fatalf("durations not monotonic: easy=%f medium=%f hard=%f",
			easy.TotalSec, medium.TotalSec, hard.TotalSec)
	}
	if hard.TotalSec >= easy.TotalSec {
		t.Fatalf("hard should be strictly faster than easy")
	}
}

func TestBuildWideVoiceRange(t *testing.T) {
	// Singer range [48,72], exercise authored over [55,67], hard vs easy.
	ex, _ := exercise.FindByID(exercise.Builtins(), "octave-slide")
	hard := Build(ex, 48, 72, model.DifficultyHard, 0)
	easy := Build(ex, 48, 72, model.DifficultyEasy, 0)
	if hard.Empty() {
		t.Fatalf("expected non-empty sequence")
	}
	if hard.TotalSec >= easy.TotalSec {
		t.Fatalf("expected hard duration %f < easy duration %f", hard.TotalSec, easy.TotalSec)
	}
}

func TestBuildTransposesIntoRange(t *testing.T) {
	res := Build(scaleExercise(), 40, 58, model.DifficultyMedium, 0)
	if res.Empty() {
		t.Fatalf("expected non-empty sequence")
	}
	for _, n := range res.Notes {
		if n.Midi < 40 || n.Midi > 58 {
			t.Fatalf("note %d outside singer range", n.Midi)
		}
	}
}

func TestBuildEmptyWhenRangeTooNarrow(t *testing.T) {
	res := Build(scaleExercise(), 60, 63, model.DifficultyMedium, 0)
	if !res.Empty() {
		t.Fatalf("expected empty sequence for too-narrow range")
	}
}

func TestBuildSingleInstanceClampsWideExercise(t *testing.T) {
	ex, _ := exercise.FindByID(exercise.Builtins(), "siren")
	res := Build(ex, 58, 64, model.DifficultyMedium, 0)
	if res.Empty() {
		t.Fatalf("single-instance build must clamp, not fail")
	}
	low := res.Notes[0].Midi
	for _, n := range res.Notes {
		if n.Midi < low {
			low = n.Midi
		}
	}
	if low != 58 {
		t.Fatalf("expected clamp to keep lowest note at range floor, got %d", low)
	}
}

func TestBuildRestOnlyIsEmpty(t *testing.T) {
	ex := exercise.Exercise{
		ID:            "rest-only",
		MultiInstance: true,
		StepSemitones: 1,
		TailSec:       1.0,
		Segments: []exercise.SegmentSpec{
			{Kind: exercise.KindRest, StartSec: 0, EndSec: 1},
		},
	}
	if res := Build(ex, 48, 72, model.DifficultyMedium, 0); !res.Empty() {
		t.Fatalf("rest-only exercise should build empty, got %d notes", len(res.Notes))
	}
	ex.MultiInstance = false
	if res := Build(ex, 48, 72, model.DifficultyMedium, 0); !res.Empty() {
		t.Fatalf("rest-only single-instance exercise should build empty")
	}
}

func TestBuildTotalIncludesTrailingRest(t *testing.T) {
	ex := exercise.Exercise{
		ID:            "note-then-rest",
		MultiInstance: true,
		StepSemitones: 1,
		TailSec:       1.0,
		Segments: []exercise.SegmentSpec{
			{Kind: exercise.KindNote, StartSec: 0, EndSec: 0.5, Midi: 60, ToleranceCents: 25},
			{Kind: exercise.KindRest, StartSec: 0.5, EndSec: 1.5},
		},
	}
	// Range admits exactly one instance at offset zero.
	res := Build(ex, 60, 60, model.DifficultyMedium, 0)
	if res.Empty() {
		t.Fatalf("expected non-empty sequence")
	}
	if got := res.Segments[0].EndSec; got < 1.5-1e-9 || got > 1.5+1e-9 {
		t.Fatalf("instance end should cover the trailing rest, got %f", got)
	}
	if res.TotalSec < 2.5-1e-9 || res.TotalSec > 2.5+1e-9 {
		t.Fatalf("total should be rest end plus tail, got %f", res.TotalSec)
	}
}

func TestBuildGlideSteps(t *testing.T) {
	ex, _ := exercise.FindByID(exercise.Builtins(), "octave-slide")
	res := Build(ex, 48, 72, model.DifficultyMedium, 0)
	if res.Empty() {
		t.Fatalf("expected non-empty sequence")
	}
	// First instance covers one glide; count its steps.
	seg := res.Segments[0]
	steps := 0
	var first, last model.ReferenceNote
	for _, n := range res.Notes {
		if n.StartSec >= seg.StartSec-1e-9 && n.EndSec <= seg.EndSec+1e-9 {
			if steps == 0 {
				first = n
			}
			last = n
			steps++
		}
	}
	if steps < 4 || steps > 24 {
		t.Fatalf("glide steps out of bounds: %d", steps)
	}
	if !first.GlideStart || !last.GlideEnd {
		t.Fatalf("glide endpoints not marked")
	}
	if last.Midi-first.Midi != 12 {
		t.Fatalf("glide should span an octave, got %d", last.Midi-first.Midi)
	}
}

func TestBuildInstanceGapAndRebasing(t *testing.T) {
	res := Build(scaleExercise(), 48, 72, model.DifficultyMedium, 0)
	if len(res.Segments) < 2 {
		t.Fatalf("expected multiple instances, got %d", len(res.Segments))
	}
	for i := 1; i < len(res.Segments); i++ {
		gap := res.Segments[i].StartSec - res.Segments[i-1].EndSec
		if gap < instanceGapSec-1e-9 || gap > instanceGapSec+1e-9 {
			t.Fatalf("expected %fs gap between instances, got %f", instanceGapSec, gap)
		}
		if res.Segments[i].TransposeSemitone <= res.Segments[i-1].TransposeSemitone {
			t.Fatalf("transpose should increase across instances")
		}
	}
}

func TestBuildLeadIn(t *testing.T) {
	res := Build(scaleExercise(), 48, 72, model.DifficultyMedium, 2.5)
	if res.Notes[0].StartSec != 2.5 {
		t.Fatalf("expected first note at lead-in, got %f", res.Notes[0].StartSec)
	}
}

func TestBuildTotalIncludesTail(t *testing.T) {
	res := Build(scaleExercise(), 48, 72, model.DifficultyMedium, 0)
	last := res.Notes[len(res.Notes)-1].EndSec
	if res.TotalSec <= last {
		t.Fatalf("total %f should extend past last note %f", res.TotalSec, last)
	}
}
