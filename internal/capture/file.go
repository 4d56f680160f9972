package capture

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/contour"
)

// FileSource replays a persisted contour file as a live sample stream,
// pacing emission by each frame's timestamp.
type FileSource struct {
	Path string
	// Immediate disables pacing; all samples are emitted at once.
	// Used by tests and offline rescoring.
	Immediate bool

	mu   sync.Mutex
	quit chan struct{}
}

// Start reads the contour file and begins emitting samples. A missing or
// malformed file is an error here, not at the parse boundary, because a
// practice run with an explicit contour argument has nothing to fall back to.
func (s *FileSource) Start() (<-chan Sample, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contour: %w", err)
	}
	frames := contour.ParseContour(data)
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames in %s", s.Path)
	}

	s.mu.Lock()
	if s.quit != nil {
		close(s.quit)
	}
	quit := make(chan struct{})
	s.quit = quit
	s.mu.Unlock()

	out := make(chan Sample, len(frames))
	go func() {
		defer close(out)
		start := time.Now()
		for _, f := range frames {
			if !s.Immediate {
				due := start.Add(time.Duration(f.Time * float64(time.Second)))
				if wait := time.Until(due); wait > 0 {
					select {
					case <-time.After(wait):
					case <-quit:
						return
					}
				}
			}
			sample := Sample{Time: f.Time}
			if f.Voiced {
				sample.Hz = f.Hz
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
func (s *FileSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
}
