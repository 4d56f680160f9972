package scoring

import (
	"math"
	"testing"

	"github.com/adiwenz/crescendo-sub001/internal/model"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		cents  float64
		voiced bool
		want   Bucket
	}{
		{0, true, BucketOn},
		{25, true, BucketOn},
		{-25, true, BucketOn},
		{25.01, true, BucketNear},
		{60, true, BucketNear},
		{-60, true, BucketNear},
		{60.01, true, BucketOff},
		{150, true, BucketOff},
		{0, false, BucketOff},
	}
	for _, tc := range cases {
		if got := Classify(tc.cents, tc.voiced); got != tc.want {
			t.Fatalf("Classify(%f, %v) = %d, want %d", tc.cents, tc.voiced, got, tc.want)
		}
	}
}

func TestScorePerfectTake(t *testing.T) {
	notes := []model.ReferenceNote{{StartSec: 0, EndSec: 1, Midi: 60}}
	frames := make([]model.PitchFrame, 0, 8)
	for i := 0; i < 8; i++ {
		frames = append(frames, model.PitchFrame{
			Time:   float64(i) * 0.125,
			Midi:   60.0,
			Voiced: true,
		})
	}
	res := Score(frames, notes)
	if res.Notes[0].Score != 1.0 {
		t.Fatalf("expected per-note score 1.0, got %f", res.Notes[0].Score)
	}
	if res.Overall != 100 {
		t.Fatalf("expected overall 100, got %f", res.Overall)
	}
	if res.Stars != 5 {
		t.Fatalf("expected 5 stars, got %d", res.Stars)
	}
}

func TestScoreEmptyNoteWindow(t *testing.T) {
	notes := []model.ReferenceNote{
		{StartSec: 0, EndSec: 1, Midi: 60},
		{StartSec: 2, EndSec: 3, Midi: 64},
	}
	frames := []model.PitchFrame{
		{Time: 0.2, Midi: 60, Voiced: true},
		{Time: 0.5, Midi: 60, Voiced: true},
		{Time: 0.8, Midi: 60, Voiced: true},
	}
	res := Score(frames, notes)
	if res.Notes[1].Score != 0 {
		t.Fatalf("note with no frames must score 0, got %f", res.Notes[1].Score)
	}
	if res.Overall != 50 {
		t.Fatalf("expected overall 50, got %f", res.Overall)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	res := Score(nil, nil)
	if res.Overall != 0 || len(res.Notes) != 0 {
		t.Fatalf("empty inputs should score zero: %+v", res)
	}
	res = Score(nil, []model.ReferenceNote{{StartSec: 0, EndSec: 1, Midi: 60}})
	if res.Overall != 0 || res.Stars != 1 {
		t.Fatalf("no frames should score zero with 1 star: %+v", res)
	}
}

func TestScoreSmoothsSpikes(t *testing.T) {
	notes := []model.ReferenceNote{{StartSec: 0, EndSec: 1, Midi: 60}}
	frames := []model.PitchFrame{
		{Time: 0.1, Midi: 60, Voiced: true},
		{Time: 0.2, Midi: 60, Voiced: true},
		{Time: 0.3, Midi: 72, Voiced: true}, // octave-jump detector glitch
		{Time: 0.4, Midi: 60, Voiced: true},
		{Time: 0.5, Midi: 60, Voiced: true},
	}
	res := Score(frames, notes)
	if res.Notes[0].Score != 1.0 {
		t.Fatalf("median smoothing should absorb the spike, got %f", res.Notes[0].Score)
	}
}

func TestStars(t *testing.T) {
	cases := []struct {
		score float64
		want  int
	}{
		{95, 5}, {90, 5}, {89.9, 4}, {75, 4}, {74, 3}, {60, 3}, {59, 2}, {40, 2}, {39, 1}, {0, 1},
	}
	for _, tc := range cases {
		if got := Stars(tc.score); got != tc.want {
			t.Fatalf("Stars(%f) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestHoldTracker(t *testing.T) {
	h := NewHoldTracker(25, 3)
	dt := 0.1
	// 2 seconds on pitch.
	for i := 0; i <= 20; i++ {
		h.Observe(float64(i)*dt, 0, true)
	}
	if h.Succeeded {
		t.Fatalf("2s hold should not succeed with 3s requirement")
	}
	if math.Abs(h.BestSec-2.0) > 1e-9 {
		t.Fatalf("expected best 2.0, got %f", h.BestSec)
	}
	// Interruption resets the continuous timer but not history.
	h.Observe(2.1, 200, true)
	if h.ContinuousSec != 0 {
		t.Fatalf("interruption must reset continuous time")
	}
	if h.BestSec < 2.0 || h.CumulativeSec <= 0 {
		t.Fatalf("history must survive interruption: best=%f cum=%f", h.BestSec, h.CumulativeSec)
	}
	// A fresh 3-second hold succeeds.
	for i := 0; i <= 30; i++ {
		h.Observe(2.2+float64(i)*dt, 5, true)
	}
	if !h.Succeeded {
		t.Fatalf("3s continuous hold should succeed")
	}
	if h.StabilityScore() != 100 {
		t.Fatalf("expected stability 100, got %f", h.StabilityScore())
	}
}

func TestHoldTrackerUnvoicedInterrupts(t *testing.T) {
	h := NewHoldTracker(0, 0)
	if h.ToleranceCents != DefaultHoldToleranceCents || h.RequiredSec != DefaultHoldRequiredSec {
		t.Fatalf("defaults not applied: %+v", h)
	}
	h.Observe(0, 0, true)
	h.Observe(1, 0, true)
	h.Observe(1.5, 0, false)
	if h.ContinuousSec != 0 {
		t.Fatalf("unvoiced frame must interrupt the hold")
	}
}

func TestUnlockProgression(t *testing.T) {
	var p Progress
	if !p.Unlocked(model.DifficultyEasy) || p.Unlocked(model.DifficultyMedium) {
		t.Fatalf("only easy should start unlocked")
	}
	// A high score on a level above the max does not unlock anything.
	p.Apply(model.DifficultyMedium, 99)
	if p.Unlocked(model.DifficultyMedium) {
		t.Fatalf("cannot skip levels")
	}
	p.Apply(model.DifficultyEasy, 89.9)
	if p.Unlocked(model.DifficultyMedium) {
		t.Fatalf("below-threshold score must not unlock")
	}
	p.Apply(model.DifficultyEasy, 90)
	if !p.Unlocked(model.DifficultyMedium) {
		t.Fatalf("threshold score should unlock medium")
	}
	// Re-attempting easy with a low score never demotes.
	p.Apply(model.DifficultyEasy, 10)
	if !p.Unlocked(model.DifficultyMedium) {
		t.Fatalf("unlock state must be monotonic")
	}
	p.Apply(model.DifficultyMedium, 95)
	if !p.Unlocked(model.DifficultyHard) {
		t.Fatalf("hard should unlock")
	}
	// Hard is the top level; a perfect score stays at hard.
	p.Apply(model.DifficultyHard, 100)
	if p.MaxUnlocked != model.DifficultyHard {
		t.Fatalf("max level must not overflow")
	}
}

func TestProgressFromHistory(t *testing.T) {
	attempts := []model.AttemptAggregate{
		{Difficulty: model.DifficultyEasy, Score: 95},
		{Difficulty: model.DifficultyMedium, Score: 50},
		{Difficulty: model.DifficultyMedium, Score: 92},
	}
	p := ProgressFromHistory(attempts)
	if p.MaxUnlocked != model.DifficultyHard {
		t.Fatalf("expected hard unlocked, got %v", p.MaxUnlocked)
	}
}
