// Package session orchestrates one exercise run: capture, reference
// playback scheduling, phase transitions and synchronous scoring at stop.
package session

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/capture"
	"github.com/adiwenz/crescendo-sub001/internal/clock"
	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
	"github.com/adiwenz/crescendo-sub001/internal/scoring"
	"github.com/adiwenz/crescendo-sub001/internal/sequence"
)

// ErrNoSequence is returned when a session is started with nothing to play.
// An empty sequence is an expected state, not a crash.
var ErrNoSequence = errors.New("no exercise sequence")

const (
	// preloadTimeout bounds the wait for confirmed playback start; after
	// it the session proceeds anyway so a stuck player cannot block a run.
	preloadTimeout = 2 * time.Second
	tickInterval   = 50 * time.Millisecond
)

// Recorder is the external audio recorder collaborator.
type Recorder interface {
	Start() error
	Stop() (path string, err error)
}

// Player is the external audio player collaborator for reference playback.
type Player interface {
	Play(path string) error
	Seek(sec float64, timeout time.Duration) error
	Stop() error
	Position() (sec float64, ok bool)
}

// NopRecorder satisfies Recorder for sessions without a recording sink.
type NopRecorder struct{}

// Start implements Recorder.
func (NopRecorder) Start() error { return nil }

// Stop implements Recorder.
func (NopRecorder) Stop() (string, error) { return "", nil }

// Snapshot is the controller state published to the UI layer.
type Snapshot struct {
	Phase      model.Phase
	Now        float64
	TotalSec   float64
	FrameCount int
	LastFrame  model.PitchFrame
	HasFrame   bool
}

// Outcome is the result of a completed run.
type Outcome struct {
	Result        scoring.Result
	Hold          *scoring.HoldTracker
	Frames        []model.PitchFrame
	RecordingPath string
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Controller owns one exercise run at a time. Starting a new run stops the
// previous one first; the audio device and microphone are singly owned.
type Controller struct {
	cfg      model.SessionConfig
	ex       exercise.Exercise
	seq      sequence.Result
	clk      *clock.Clock
	wd       *clock.Watchdog
	source   capture.Source
	recorder Recorder
	player   Player
	refPath  string

	// NoteTrigger, when set, is invoked for each reference note at its
	// scheduled time, for synthesized reference-tone playback.
	NoteTrigger func(model.ReferenceNote)

	mu       sync.Mutex
	phase    model.Phase
	runID    int
	stopping bool
	frames   []model.PitchFrame
	epoch    time.Time
	timers   []*time.Timer
	quit     chan struct{}
	outcome  *Outcome
	started  time.Time

	logf func(format string, args ...any)
}

// New constructs an idle controller. recorder may be nil (NopRecorder is
// substituted); player may be nil for MIDI-only playback.
func New(cfg model.SessionConfig, ex exercise.Exercise, seq sequence.Result, source capture.Source, recorder Recorder, player Player, refPath string) *Controller {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	c := &Controller{
		cfg:      cfg,
		ex:       ex,
		seq:      seq,
		clk:      clock.New(cfg.LatencyCompMs),
		wd:       clock.NewWatchdog(clock.DefaultMaxStale),
		source:   source,
		recorder: recorder,
		player:   player,
		refPath:  refPath,
		phase:    model.PhaseIdle,
		logf: func(format string, args ...any) {
			if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
				// Best-effort logging to stderr.
				_ = err
			}
		},
	}
	if player != nil {
		c.clk.SetPositionProvider(player.Position)
	}
	return c
}

// Clock exposes the session's master clock. The clock is the only time
// source rendering should consume.
func (c *Controller) Clock() *clock.Clock {
	return c.clk
}

// Start runs the session. It returns ErrNoSequence when there is nothing to
// play, and stops a previously active run before starting.
func (c *Controller) Start() error {
	if c.seq.Empty() {
		return ErrNoSequence
	}

	c.mu.Lock()
	if c.phase == model.PhaseActive || c.phase == model.PhaseCountdown || c.phase == model.PhasePreloading {
		c.mu.Unlock()
		if _, err := c.Stop(); err != nil {
			c.logf("stopping previous run: %v\n", err)
		}
		c.mu.Lock()
	}
	c.runID++
	id := c.runID
	c.phase = model.PhasePreloading
	c.frames = nil
	c.outcome = nil
	c.stopping = false
	c.started = time.Now()
	quit := make(chan struct{})
	c.quit = quit
	c.mu.Unlock()

	if err := c.recorder.Start(); err != nil {
		c.setPhase(model.PhaseIdle)
		return fmt.Errorf("failed to start recorder: %w", err)
	}

	haveAudio := c.player != nil && c.refPath != ""
	if haveAudio {
		if err := c.player.Play(c.refPath); err != nil {
			// Reference audio is optional; fall back to MIDI-only.
			c.logf("reference playback failed, using tick fallback: %v\n", err)
			haveAudio = false
		}
	}

	ch, err := c.source.Start()
	if err != nil {
		c.teardownAfterFailedStart()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	c.clk.Start(0, haveAudio)
	c.wd.Reset()

	// The timeline origin is the moment playback is confirmed started,
	// not the moment it was requested.
	epoch := c.awaitPlaybackStart(haveAudio)
	c.mu.Lock()
	if c.runID != id {
		c.mu.Unlock()
		return nil
	}
	c.epoch = epoch
	if c.cfg.LeadInSec > 0 {
		c.phase = model.PhaseCountdown
	} else {
		c.phase = model.PhaseActive
	}
	c.scheduleNotesLocked(id, epoch)
	c.mu.Unlock()

	go c.ingest(id, ch)
	go c.run(id, quit)
	return nil
}

// awaitPlaybackStart blocks until the player reports a position or the
// preload timeout elapses. Without audio the anchor is immediate.
func (c *Controller) awaitPlaybackStart(haveAudio bool) time.Time {
	if !haveAudio {
		return time.Now()
	}
	deadline := time.Now().Add(preloadTimeout)
	for time.Now().Before(deadline) {
		if pos, ok := c.player.Position(); ok && pos > 0 {
			c.wd.Observe(pos)
			return time.Now()
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.logf("playback start not confirmed within %v, proceeding\n", preloadTimeout)
	return time.Now()
}

// scheduleNotesLocked arms one timer per reference note, keyed off the
// anchored epoch rather than the clock, so scheduling stays correct if the
// clock's position source changes mid-session.
func (c *Controller) scheduleNotesLocked(id int, epoch time.Time) {
	if c.NoteTrigger == nil {
		return
	}
	for _, note := range c.seq.Notes {
		note := note
		delay := time.Until(epoch.Add(time.Duration(note.StartSec * float64(time.Second))))
		if delay < 0 {
			delay = 0
		}
		c.timers = append(c.timers, time.AfterFunc(delay, func() {
			c.mu.Lock()
			stale := c.runID != id
			trigger := c.NoteTrigger
			c.mu.Unlock()
			if stale || trigger == nil {
				return
			}
			trigger(note)
		}))
	}
}

// ingest appends captured frames. Stale frames from a superseded run are
// dropped rather than applied.
func (c *Controller) ingest(id int, ch <-chan capture.Sample) {
	for sample := range ch {
		frame := c.toFrame(sample)
		c.mu.Lock()
		if c.runID != id {
			c.mu.Unlock()
			return
		}
		c.frames = append(c.frames, frame)
		c.mu.Unlock()
	}
}

func (c *Controller) toFrame(sample capture.Sample) model.PitchFrame {
	frame := model.PitchFrame{Time: sample.Time, VoicedProb: sample.Confidence}
	if pitch.IsVoiced(sample.Hz, sample.Confidence) {
		frame.Voiced = true
		frame.Hz = sample.Hz
		frame.Midi = pitch.HzToMidi(sample.Hz)
		if target, ok := targetAt(c.seq.Notes, sample.Time); ok {
			frame.CentsError = pitch.Cents(frame.Midi, target)
		}
	}
	return frame
}

// run drives phase refresh, the position watchdog and auto-completion.
func (c *Controller) run(id int, quit chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
		now := c.clk.Now()

		c.mu.Lock()
		if c.runID != id {
			c.mu.Unlock()
			return
		}
		if c.phase == model.PhaseCountdown && now >= c.cfg.LeadInSec {
			c.phase = model.PhaseActive
		}
		done := now >= c.seq.TotalSec
		c.mu.Unlock()

		if c.player != nil && c.wd.Stale() {
			// Stalled position stream: poll the player directly.
			if pos, ok := c.player.Position(); ok {
				c.wd.Observe(pos)
			}
		}
		if done {
			if _, err := c.Stop(); err != nil && !errors.Is(err, errAlreadyStopping) {
				c.logf("auto-stop failed: %v\n", err)
			}
			return
		}
	}
}

var errAlreadyStopping = errors.New("session already stopping")

// Stop cancels capture, flushes the recorder and scores the take
// synchronously. It is safe to call concurrently; overlapping stops are
// rejected by a busy guard.
func (c *Controller) Stop() (Outcome, error) {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return Outcome{}, errAlreadyStopping
	}
	if c.phase == model.PhaseIdle || c.phase == model.PhaseFinished {
		out := c.outcome
		c.mu.Unlock()
		if out != nil {
			return *out, nil
		}
		return Outcome{}, errors.New("session not running")
	}
	if c.phase == model.PhaseReplay {
		c.runID++
		quit := c.quit
		c.quit = nil
		c.phase = model.PhaseFinished
		out := c.outcome
		c.mu.Unlock()
		if quit != nil {
			close(quit)
		}
		c.clk.Pause()
		if c.player != nil {
			if err := c.player.Stop(); err != nil {
				c.logf("replay player stop: %v\n", err)
			}
		}
		if out != nil {
			return *out, nil
		}
		return Outcome{}, nil
	}
	c.stopping = true
	quit := c.quit
	c.quit = nil
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()

	if quit != nil {
		close(quit)
	}
	for _, t := range timers {
		t.Stop()
	}
	c.source.Stop()
	c.clk.Pause()

	recordingPath, err := c.recorder.Stop()
	if err != nil {
		c.logf("recorder stop: %v\n", err)
		recordingPath = ""
	}
	if c.player != nil {
		if err := c.player.Stop(); err != nil {
			c.logf("player stop: %v\n", err)
		}
	}

	// Give the ingest goroutine a moment to drain buffered samples;
	// scoring must only see a fully flushed frame list.
	time.Sleep(tickInterval)

	c.mu.Lock()
	frames := make([]model.PitchFrame, len(c.frames))
	copy(frames, c.frames)
	started := c.started
	c.mu.Unlock()

	out := Outcome{
		Result:        scoring.Score(frames, c.seq.Notes),
		Frames:        frames,
		RecordingPath: recordingPath,
		StartedAt:     started,
		CompletedAt:   time.Now(),
	}
	if c.ex.Family == exercise.FamilySustain {
		out.Hold = c.scoreHold(frames)
		out.Result.SubScores["stability"] = out.Hold.StabilityScore()
	}

	c.mu.Lock()
	c.phase = model.PhaseFinished
	c.stopping = false
	c.outcome = &out
	c.mu.Unlock()
	return out, nil
}

// Replay sweeps the clock over the finished take again so the recorded
// contour can be rendered against the targets. Capture and recording stay
// stopped; only reference playback restarts when available.
func (c *Controller) Replay() error {
	c.mu.Lock()
	if c.phase != model.PhaseFinished {
		c.mu.Unlock()
		return errors.New("no finished take to replay")
	}
	c.runID++
	id := c.runID
	c.phase = model.PhaseReplay
	quit := make(chan struct{})
	c.quit = quit
	c.mu.Unlock()

	if c.player != nil && c.refPath != "" {
		if err := c.player.Play(c.refPath); err != nil {
			c.logf("replay playback failed, using tick fallback: %v\n", err)
		}
	}
	c.clk.Start(0, false)
	go c.runReplay(id, quit)
	return nil
}

// runReplay returns the session to finished once the sweep passes the end.
func (c *Controller) runReplay(id int, quit chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
		if c.clk.Now() < c.seq.TotalSec {
			continue
		}
		c.clk.Pause()
		if c.player != nil {
			if err := c.player.Stop(); err != nil {
				c.logf("replay player stop: %v\n", err)
			}
		}
		c.mu.Lock()
		if c.runID == id && c.phase == model.PhaseReplay {
			c.phase = model.PhaseFinished
			c.quit = nil
		}
		c.mu.Unlock()
		return
	}
}

func (c *Controller) scoreHold(frames []model.PitchFrame) *scoring.HoldTracker {
	tolerance := 0.0
	if len(c.ex.Segments) > 0 {
		tolerance = c.ex.Segments[0].ToleranceCents
	}
	h := scoring.NewHoldTracker(tolerance, c.ex.HoldSec)
	for _, f := range frames {
		cents := f.CentsError
		if target, ok := targetAt(c.seq.Notes, f.Time); ok && f.Voiced {
			cents = pitch.Cents(f.Midi, target)
		}
		h.Observe(f.Time, cents, f.Voiced)
	}
	return h
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	now := c.clk.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Phase:      c.phase,
		Now:        now,
		TotalSec:   c.seq.TotalSec,
		FrameCount: len(c.frames),
	}
	if len(c.frames) > 0 {
		snap.LastFrame = c.frames[len(c.frames)-1]
		snap.HasFrame = true
	}
	return snap
}

// Teardown releases everything best-effort in a fixed order: clock,
// subscriptions, recorder, player, state. Individual failures are logged
// and skipped; teardown never propagates errors.
func (c *Controller) Teardown() {
	c.clk.Pause()

	c.mu.Lock()
	c.runID++
	quit := c.quit
	c.quit = nil
	timers := c.timers
	c.timers = nil
	active := c.phase == model.PhaseActive || c.phase == model.PhaseCountdown || c.phase == model.PhasePreloading
	c.mu.Unlock()

	if quit != nil {
		close(quit)
	}
	for _, t := range timers {
		t.Stop()
	}
	c.source.Stop()
	if active {
		if _, err := c.recorder.Stop(); err != nil {
			c.logf("teardown recorder: %v\n", err)
		}
	}
	if c.player != nil {
		if err := c.player.Stop(); err != nil {
			c.logf("teardown player: %v\n", err)
		}
	}

	c.mu.Lock()
	c.phase = model.PhaseIdle
	c.frames = nil
	c.mu.Unlock()
}

func (c *Controller) teardownAfterFailedStart() {
	if _, err := c.recorder.Stop(); err != nil {
		c.logf("recorder stop after failed start: %v\n", err)
	}
	if c.player != nil {
		if err := c.player.Stop(); err != nil {
			c.logf("player stop after failed start: %v\n", err)
		}
	}
	c.setPhase(model.PhaseIdle)
}

func (c *Controller) setPhase(p model.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

func targetAt(notes []model.ReferenceNote, t float64) (float64, bool) {
	for _, n := range notes {
		if t >= n.StartSec && t < n.EndSec {
			return float64(n.Midi), true
		}
	}
	// Between notes there is no target; the nearest edge decides for
	// display purposes only.
	if len(notes) == 0 {
		return 0, false
	}
	best := notes[0]
	bestDist := math.Inf(1)
	for _, n := range notes {
		d := math.Min(math.Abs(t-n.StartSec), math.Abs(t-n.EndSec))
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	if bestDist > 0.5 {
		return 0, false
	}
	return float64(best.Midi), true
}
