package tui

import (
	"strings"
	"testing"

	"github.com/adiwenz/crescendo-sub001/internal/model"
)

func TestRenderLaneShape(t *testing.T) {
	notes := []model.ReferenceNote{
		{StartSec: 0, EndSec: 4, Midi: 60, Label: "C4"},
	}
	out := renderLane(notes, nil, 1.0, 60, 10, 55, 67)
	lines := strings.Split(out, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	if !strings.Contains(out, string(noteRune)) {
		t.Fatalf("expected target bar in lane: %q", out)
	}
	if !strings.Contains(out, string(cursorRune)) {
		t.Fatalf("expected now cursor in lane: %q", out)
	}
	if !strings.Contains(out, "G4") || !strings.Contains(out, "G3") {
		t.Fatalf("expected gutter labels: %q", out)
	}
}

func TestRenderLaneTraceDots(t *testing.T) {
	notes := []model.ReferenceNote{
		{StartSec: 0, EndSec: 4, Midi: 60},
	}
	frames := []model.PitchFrame{
		{Time: 0.9, Midi: 60.1, CentsError: 10, Voiced: true},
		{Time: 0.5, Hz: 0, Voiced: false},
	}
	out := renderLane(notes, frames, 1.0, 60, 10, 55, 67)
	if strings.Count(out, string(traceRune)) != 1 {
		t.Fatalf("expected exactly one trace dot, unvoiced frames are skipped: %q", out)
	}
}

func TestRenderLaneGlideRune(t *testing.T) {
	notes := []model.ReferenceNote{
		{StartSec: 0, EndSec: 2, Midi: 58, GlideStart: true},
	}
	out := renderLane(notes, nil, 1.0, 60, 10, 55, 67)
	if !strings.Contains(out, string(glideRune)) {
		t.Fatalf("expected glide rune: %q", out)
	}
}

func TestRenderLaneTooNarrow(t *testing.T) {
	if out := renderLane(nil, nil, 0, 5, 10, 55, 67); out != "" {
		t.Fatalf("narrow lane must render nothing, got %q", out)
	}
}

func TestLaneRowOrientation(t *testing.T) {
	top := laneRow(67, 10, 55, 67)
	bottom := laneRow(55, 10, 55, 67)
	if top != 0 {
		t.Fatalf("highest pitch must map to the top row, got %d", top)
	}
	if bottom != 9 {
		t.Fatalf("lowest pitch must map to the bottom row, got %d", bottom)
	}
	if got := laneRow(80, 10, 55, 67); got != 0 {
		t.Fatalf("overshoot must clamp, got %d", got)
	}
}

func TestStarsLine(t *testing.T) {
	if got := starsLine(3); got != "★★★☆☆" {
		t.Fatalf("unexpected stars %q", got)
	}
	if got := starsLine(7); got != "★★★★★" {
		t.Fatalf("stars must clamp, got %q", got)
	}
}
