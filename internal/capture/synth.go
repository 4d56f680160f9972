package capture

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
)

// SynthSource simulates a singer following a target sequence, for demo runs
// without a microphone. Jitter adds random detuning in cents.
type SynthSource struct {
	Notes       []model.ReferenceNote
	TotalSec    float64
	JitterCents float64
	// Cadence is the sample period; zero means 20ms.
	Cadence time.Duration
	// Immediate emits the whole take at once instead of in real time.
	Immediate bool
	// Seed fixes the jitter sequence; zero seeds from the current time.
	Seed int64

	mu   sync.Mutex
	quit chan struct{}
}

// Start begins emitting synthesized samples until the take duration elapses.
func (s *SynthSource) Start() (<-chan Sample, error) {
	cadence := s.Cadence
	if cadence <= 0 {
		cadence = 20 * time.Millisecond
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	s.mu.Lock()
	if s.quit != nil {
		close(s.quit)
	}
	quit := make(chan struct{})
	s.quit = quit
	s.mu.Unlock()

	step := cadence.Seconds()
	count := int(math.Ceil(s.TotalSec / step))
	out := make(chan Sample, count+1)
	go func() {
		defer close(out)
		start := time.Now()
		for i := 0; i <= count; i++ {
			t := float64(i) * step
			if !s.Immediate {
				due := start.Add(time.Duration(t * float64(time.Second)))
				if wait := time.Until(due); wait > 0 {
					select {
					case <-time.After(wait):
					case <-quit:
						return
					}
				}
			}
			sample := Sample{Time: t}
			if midi, ok := targetAt(s.Notes, t); ok {
				detune := 0.0
				if s.JitterCents > 0 {
					detune = (rnd.Float64()*2 - 1) * s.JitterCents / 100
				}
				sample.Hz = pitch.MidiToHz(midi + detune)
				sample.Confidence = 1
			}
			select {
			case out <- sample:
			case <-quit:
				return
			}
		}
	}()
	return out, nil
}

// Stop ends the current stream.
func (s *SynthSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
}

func targetAt(notes []model.ReferenceNote, t float64) (float64, bool) {
	for _, n := range notes {
		if t >= n.StartSec && t < n.EndSec {
			return float64(n.Midi), true
		}
	}
	return 0, false
}
