// Package pitch provides conversions between frequency, MIDI and note names.
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// A4Hz is the reference tuning frequency.
	A4Hz = 440.0
	// A4Midi is the MIDI note number of A4.
	A4Midi = 69.0
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// HzToMidi converts a frequency to a fractional MIDI note number.
// The caller must guard against non-positive frequencies.
func HzToMidi(hz float64) float64 {
	return A4Midi + 12*math.Log2(hz/A4Hz)
}

// MidiToHz converts a MIDI note number to a frequency.
func MidiToHz(midi float64) float64 {
	return A4Hz * math.Pow(2, (midi-A4Midi)/12)
}

// MidiToName returns the note name for the nearest MIDI note, e.g. "A4".
func MidiToName(midi float64) string {
	n := int(math.Round(midi))
	octave := n/12 - 1
	pc := n % 12
	if pc < 0 {
		pc += 12
		octave--
	}
	return fmt.Sprintf("%s%d", noteNames[pc], octave)
}

// NameToMidi parses a note name like "C3" or "F#4" into a MIDI note number.
func NameToMidi(name string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	pcLen := 1
	if len(s) > 2 && s[1] == '#' {
		pcLen = 2
	}
	pc := -1
	for i, n := range noteNames {
		if n == s[:pcLen] {
			pc = i
			break
		}
	}
	if pc < 0 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	octave, err := strconv.Atoi(s[pcLen:])
	if err != nil {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	return (octave+1)*12 + pc, nil
}

// Cents returns the signed pitch error of a sung note against a target, in cents.
func Cents(sungMidi, targetMidi float64) float64 {
	return (sungMidi - targetMidi) * 100
}

// IsVoiced reports whether a raw detector sample should be treated as voiced.
// Low-confidence, non-finite and non-positive frequencies count as unvoiced.
func IsVoiced(hz, confidence float64) bool {
	if confidence < 0.5 {
		return false
	}
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return false
	}
	return true
}

// MidiToY linearly maps a MIDI value to a vertical coordinate in [0, height],
// clamping values outside [midiMin, midiMax]. Higher pitch maps toward 0.
func MidiToY(midi float64, height, midiMin, midiMax float64) float64 {
	if midiMax <= midiMin {
		return height / 2
	}
	if midi < midiMin {
		midi = midiMin
	}
	if midi > midiMax {
		midi = midiMax
	}
	return (midiMax - midi) / (midiMax - midiMin) * height
}

// MedianSmooth applies a median filter with an odd window, padding edges.
// Windows below 2 are a no-op.
func MedianSmooth(values []float64, win int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if win < 2 || len(values) == 0 {
		return out
	}
	if win%2 == 0 {
		win++
	}
	pad := win / 2
	buf := make([]float64, 0, win)
	for i := range values {
		buf = buf[:0]
		for j := i - pad; j <= i+pad; j++ {
			k := j
			if k < 0 {
				k = 0
			}
			if k >= len(values) {
				k = len(values) - 1
			}
			buf = append(buf, values[k])
		}
		out[i] = median(buf)
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[len(sorted)/2]
}
