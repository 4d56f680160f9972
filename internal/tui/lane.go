// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
	"github.com/adiwenz/crescendo-sub001/internal/scoring"
)

const (
	// laneWindowSec is the span of time visible in the lane.
	laneWindowSec = 8.0
	// laneCursorFrac places the now-cursor inside the window, with most of
	// the window showing what comes next.
	laneCursorFrac = 0.3

	noteRune   = '─'
	glideRune  = '╌'
	traceRune  = '●'
	cursorRune = '│'
)

type laneCell struct {
	ch    rune
	style int
}

const (
	styleNone = iota
	styleTarget
	styleGlide
	styleOn
	styleNear
	styleOff
	styleCursor
)

// renderLane draws the scrolling pitch lane: target notes as bars, the sung
// trace as dots bucketed by accuracy, and a fixed now-cursor.
func renderLane(notes []model.ReferenceNote, frames []model.PitchFrame, now float64, width, height, midiLo, midiHi int) string {
	gutter := gutterLabels(height, midiLo, midiHi)
	gutterWidth := 0
	for _, g := range gutter {
		if w := runewidth.StringWidth(g); w > gutterWidth {
			gutterWidth = w
		}
	}
	laneWidth := width - gutterWidth - 1
	if laneWidth < 4 || height < 2 {
		return ""
	}

	winStart := now - laneWindowSec*laneCursorFrac
	grid := make([][]laneCell, height)
	for y := range grid {
		grid[y] = make([]laneCell, laneWidth)
	}

	for x := 0; x < laneWidth; x++ {
		t := winStart + (float64(x)+0.5)/float64(laneWidth)*laneWindowSec
		for _, n := range notes {
			if t < n.StartSec || t >= n.EndSec {
				continue
			}
			y := laneRow(float64(n.Midi), height, midiLo, midiHi)
			cell := laneCell{ch: noteRune, style: styleTarget}
			if n.GlideStart || n.GlideEnd {
				cell = laneCell{ch: glideRune, style: styleGlide}
			}
			grid[y][x] = cell
		}
	}

	for _, f := range frames {
		if !f.Voiced || f.Time < winStart || f.Time >= winStart+laneWindowSec {
			continue
		}
		x := int((f.Time - winStart) / laneWindowSec * float64(laneWidth))
		if x < 0 || x >= laneWidth {
			continue
		}
		y := laneRow(f.Midi, height, midiLo, midiHi)
		style := styleOff
		switch scoring.Classify(f.CentsError, f.Voiced) {
		case scoring.BucketOn:
			style = styleOn
		case scoring.BucketNear:
			style = styleNear
		}
		grid[y][x] = laneCell{ch: traceRune, style: style}
	}

	cursorX := int(laneCursorFrac * float64(laneWidth))
	for y := 0; y < height; y++ {
		if grid[y][cursorX].style == styleNone {
			grid[y][cursorX] = laneCell{ch: cursorRune, style: styleCursor}
		}
	}

	var b strings.Builder
	for y := 0; y < height; y++ {
		b.WriteString(padGutter(gutter[y], gutterWidth))
		b.WriteByte(' ')
		for x := 0; x < laneWidth; x++ {
			b.WriteString(renderCell(grid[y][x]))
		}
		if y < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// laneRow maps a midi value to a lane row, highest pitch on top.
func laneRow(midi float64, height, midiLo, midiHi int) int {
	y := pitch.MidiToY(midi, float64(height-1), float64(midiLo), float64(midiHi))
	row := int(y + 0.5)
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

// gutterLabels names the top, middle and bottom lane rows.
func gutterLabels(height, midiLo, midiHi int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = pitch.MidiToName(float64(midiHi))
	if height > 2 {
		labels[height/2] = pitch.MidiToName(float64((midiLo + midiHi) / 2))
	}
	if height > 1 {
		labels[height-1] = pitch.MidiToName(float64(midiLo))
	}
	return labels
}

func padGutter(label string, width int) string {
	pad := width - runewidth.StringWidth(label)
	if pad <= 0 {
		return laneAxisStyle.Render(label)
	}
	return laneAxisStyle.Render(strings.Repeat(" ", pad) + label)
}

func renderCell(c laneCell) string {
	switch c.style {
	case styleTarget:
		return targetStyle.Render(string(c.ch))
	case styleGlide:
		return glideStyle.Render(string(c.ch))
	case styleOn:
		return onStyle.Render(string(c.ch))
	case styleNear:
		return nearStyle.Render(string(c.ch))
	case styleOff:
		return offStyle.Render(string(c.ch))
	case styleCursor:
		return laneAxisStyle.Render(string(c.ch))
	default:
		return " "
	}
}

// starsLine renders a 1-5 star rating.
func starsLine(stars int) string {
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return fmt.Sprintf("%s%s", strings.Repeat("★", stars), strings.Repeat("☆", 5-stars))
}
