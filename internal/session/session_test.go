package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/capture"
	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/sequence"
)

type fakeRecorder struct {
	mu      sync.Mutex
	started int
	stopped int
	path    string
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	return nil
}

func (r *fakeRecorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
	return r.path, nil
}

type fakePlayer struct {
	mu      sync.Mutex
	playing bool
	pos     float64
	start   time.Time
}

func (p *fakePlayer) Play(string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.start = time.Now()
	return nil
}

func (p *fakePlayer) Seek(sec float64, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = sec
	p.start = time.Now()
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *fakePlayer) Position() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return 0, false
	}
	return p.pos + time.Since(p.start).Seconds(), true
}

func shortExercise() exercise.Exercise {
	return exercise.Exercise{
		ID:         "test-hold",
		CategoryID: "test",
		Family:     exercise.FamilySustain,
		HoldSec:    0.2,
		TailSec:    0.1,
		Segments: []exercise.SegmentSpec{
			{Kind: exercise.KindNote, StartSec: 0, EndSec: 0.4, Midi: 60, ToleranceCents: 30},
		},
	}
}

func buildShort(t *testing.T, cfg model.SessionConfig) (exercise.Exercise, sequence.Result) {
	t.Helper()
	ex := shortExercise()
	seq := sequence.Build(ex, cfg.LowestMidi, cfg.HighestMidi, cfg.Difficulty, cfg.LeadInSec)
	if seq.Empty() {
		t.Fatalf("expected playable sequence")
	}
	return ex, seq
}

func waitForPhase(t *testing.T, c *Controller, want model.Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Snapshot().Phase == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %v, at %v", want, c.Snapshot().Phase)
}

func TestStartWithEmptySequence(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72}
	c := New(cfg, shortExercise(), sequence.Result{}, &capture.SynthSource{}, nil, nil, "")
	if err := c.Start(); !errors.Is(err, ErrNoSequence) {
		t.Fatalf("expected ErrNoSequence, got %v", err)
	}
	if c.Snapshot().Phase != model.PhaseIdle {
		t.Fatalf("failed start must leave session idle")
	}
}

func TestSessionRunsToCompletion(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	rec := &fakeRecorder{path: "/tmp/take.wav"}
	c := New(cfg, ex, seq, src, rec, nil, "")

	var triggered []model.ReferenceNote
	var mu sync.Mutex
	c.NoteTrigger = func(n model.ReferenceNote) {
		mu.Lock()
		triggered = append(triggered, n)
		mu.Unlock()
	}

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForPhase(t, c, model.PhaseFinished)

	out, err := c.Stop()
	if err != nil {
		t.Fatalf("stop after finish should return the outcome: %v", err)
	}
	if len(out.Frames) == 0 {
		t.Fatalf("expected captured frames")
	}
	if out.Result.Overall < 90 {
		t.Fatalf("synth singer should score high, got %f", out.Result.Overall)
	}
	if out.RecordingPath != "/tmp/take.wav" {
		t.Fatalf("unexpected recording path %q", out.RecordingPath)
	}
	if out.Hold == nil || !out.Hold.Succeeded {
		t.Fatalf("sustain hold should succeed: %+v", out.Hold)
	}
	if rec.stopped != 1 {
		t.Fatalf("recorder should be stopped once, got %d", rec.stopped)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(triggered) != len(seq.Notes) {
		t.Fatalf("expected %d note triggers, got %d", len(seq.Notes), len(triggered))
	}
}

func TestCountdownPhase(t *testing.T) {
	cfg := model.SessionConfig{
		LowestMidi: 48, HighestMidi: 72,
		Difficulty: model.DifficultyMedium,
		LeadInSec:  0.3,
	}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	c := New(cfg, ex, seq, src, nil, nil, "")
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p := c.Snapshot().Phase; p != model.PhaseCountdown {
		t.Fatalf("expected countdown, got %v", p)
	}
	waitForPhase(t, c, model.PhaseActive)
	waitForPhase(t, c, model.PhaseFinished)
}

func TestExplicitStopScoresFlushedFrames(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Immediate: true, Seed: 1}
	c := New(cfg, ex, seq, src, nil, nil, "")
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Immediate source delivers everything at once; stop right away.
	time.Sleep(100 * time.Millisecond)
	out, err := c.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(out.Frames) == 0 {
		t.Fatalf("expected flushed frames at stop")
	}
	if c.Snapshot().Phase != model.PhaseFinished {
		t.Fatalf("expected finished phase")
	}
}

func TestRestartSupersedesPreviousRun(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	rec := &fakeRecorder{}
	c := New(cfg, ex, seq, src, rec, nil, "")
	if err := c.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("second start must stop the first run: %v", err)
	}
	waitForPhase(t, c, model.PhaseFinished)
	if rec.started != 2 || rec.stopped < 1 {
		t.Fatalf("recorder ownership not handed over: started=%d stopped=%d", rec.started, rec.stopped)
	}
	c.Teardown()
	if c.Snapshot().Phase != model.PhaseIdle {
		t.Fatalf("teardown should leave session idle")
	}
}

func TestPlayerAnchorsEpoch(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	p := &fakePlayer{pos: 0.01}
	c := New(cfg, ex, seq, src, nil, p, "/tmp/ref.wav")
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Clock().Frozen() {
		// First Now() call unfreezes against the playing fake.
		c.Clock().Now()
	}
	if c.Clock().Frozen() {
		t.Fatalf("clock should unfreeze once the player reports a position")
	}
	waitForPhase(t, c, model.PhaseFinished)
}

func TestReplaySweepsFinishedTake(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	c := New(cfg, ex, seq, src, nil, nil, "")
	if err := c.Replay(); err == nil {
		t.Fatalf("replay without a finished take must fail")
	}

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForPhase(t, c, model.PhaseFinished)
	first, err := c.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if err := c.Replay(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if p := c.Snapshot().Phase; p != model.PhaseReplay {
		t.Fatalf("expected replay phase, got %v", p)
	}
	out, err := c.Stop()
	if err != nil {
		t.Fatalf("stop during replay: %v", err)
	}
	if out.Result.Overall != first.Result.Overall {
		t.Fatalf("stopping a replay must return the original outcome")
	}
	if p := c.Snapshot().Phase; p != model.PhaseFinished {
		t.Fatalf("stopped replay should return to finished, got %v", p)
	}

	// A full sweep finishes on its own.
	if err := c.Replay(); err != nil {
		t.Fatalf("second replay: %v", err)
	}
	waitForPhase(t, c, model.PhaseFinished)
}

func TestTeardownIsIdempotent(t *testing.T) {
	cfg := model.SessionConfig{LowestMidi: 48, HighestMidi: 72, Difficulty: model.DifficultyMedium}
	ex, seq := buildShort(t, cfg)
	src := &capture.SynthSource{Notes: seq.Notes, TotalSec: seq.TotalSec, Seed: 1}
	c := New(cfg, ex, seq, src, nil, nil, "")
	c.Teardown()
	c.Teardown()
	if c.Snapshot().Phase != model.PhaseIdle {
		t.Fatalf("teardown should be safe on an idle session")
	}
}
