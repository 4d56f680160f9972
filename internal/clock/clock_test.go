package clock

import (
	"testing"
	"time"
)

type fakeTime struct {
	t time.Time
}

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Unix(1000, 0)}
}

func (f *fakeTime) now() time.Time {
	return f.t
}

func (f *fakeTime) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func TestFrozenClockNeverAdvancesWithoutAudio(t *testing.T) {
	ft := newFakeTime()
	c := New(0)
	c.now = ft.now
	c.Start(1.5, true)

	for i := 0; i < 10; i++ {
		ft.advance(5 * time.Second)
		if got := c.Now(); got != 1.5 {
			t.Fatalf("frozen clock must stay pinned, got %f", got)
		}
	}
	if !c.Frozen() {
		t.Fatalf("clock should still be frozen")
	}
}

func TestFrozenClockUnfreezesOnFirstPosition(t *testing.T) {
	ft := newFakeTime()
	c := New(0)
	c.now = ft.now
	pos := 0.0
	ok := false
	c.SetPositionProvider(func() (float64, bool) { return pos, ok })
	c.Start(0, true)

	ft.advance(time.Second)
	if got := c.Now(); got != 0 {
		t.Fatalf("still frozen, got %f", got)
	}
	pos, ok = 0.12, true
	if got := c.Now(); got != 0.12 {
		t.Fatalf("expected provider position, got %f", got)
	}
	if c.Frozen() {
		t.Fatalf("clock should be unfrozen")
	}
}

func TestTickerFallbackAppliesLatency(t *testing.T) {
	ft := newFakeTime()
	c := New(150)
	c.now = ft.now
	c.Start(0, false)
	ft.advance(2 * time.Second)
	got := c.Now()
	want := 2.0 - 0.15
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestProviderDropoutContinuesFromLastPosition(t *testing.T) {
	ft := newFakeTime()
	c := New(0)
	c.now = ft.now
	pos := 3.0
	ok := true
	c.SetPositionProvider(func() (float64, bool) { return pos, ok })
	c.Start(0, false)

	if got := c.Now(); got != 3.0 {
		t.Fatalf("expected provider position, got %f", got)
	}
	ok = false
	ft.advance(time.Second)
	got := c.Now()
	if diff := got - 4.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected ticker continuation from 3.0, got %f", got)
	}
}

func TestPauseAndSeek(t *testing.T) {
	ft := newFakeTime()
	c := New(0)
	c.now = ft.now
	c.Start(0, false)
	ft.advance(time.Second)
	c.Pause()
	ft.advance(time.Minute)
	if got := c.Now(); got != 1.0 {
		t.Fatalf("paused clock should hold, got %f", got)
	}
	c.Start(0, true)
	c.Seek(7.5)
	if c.Frozen() {
		t.Fatalf("seek must invalidate frozen state")
	}
	if got := c.Now(); got != 7.5 {
		t.Fatalf("expected 7.5 after seek, got %f", got)
	}
}

func TestWatchdogStaleness(t *testing.T) {
	ft := newFakeTime()
	w := NewWatchdog(time.Second)
	w.now = ft.now

	if w.Stale() {
		t.Fatalf("never-observed watchdog must not be stale")
	}
	w.Observe(0.5)
	ft.advance(500 * time.Millisecond)
	if w.Stale() {
		t.Fatalf("fresh position should not be stale")
	}
	ft.advance(600 * time.Millisecond)
	if !w.Stale() {
		t.Fatalf("expected stale after threshold")
	}
	// A non-advancing position does not reset the timer.
	w.Observe(0.5)
	if !w.Stale() {
		t.Fatalf("non-advancing observation must not reset staleness")
	}
	w.Observe(0.6)
	if w.Stale() {
		t.Fatalf("advancing observation should reset staleness")
	}
}

func TestWatchdogDefaultThreshold(t *testing.T) {
	w := NewWatchdog(0)
	if w.MaxStale != DefaultMaxStale {
		t.Fatalf("expected default threshold, got %v", w.MaxStale)
	}
}
