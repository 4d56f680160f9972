package pitch

import (
	"math"
	"testing"
)

func TestHzToMidiA4(t *testing.T) {
	if got := HzToMidi(440); math.Abs(got-69) > 1e-9 {
		t.Fatalf("expected 69, got %f", got)
	}
	if got := HzToMidi(220); math.Abs(got-57) > 1e-9 {
		t.Fatalf("expected 57, got %f", got)
	}
}

func TestMidiHzRoundTrip(t *testing.T) {
	for midi := 36.0; midi <= 84.0; midi += 0.5 {
		back := HzToMidi(MidiToHz(midi))
		if math.Abs(back-midi) > 1e-9 {
			t.Fatalf("round trip failed for %f: got %f", midi, back)
		}
	}
}

func TestMidiToName(t *testing.T) {
	cases := []struct {
		midi float64
		want string
	}{
		{69, "A4"},
		{60, "C4"},
		{61, "C#4"},
		{59.7, "C4"},
		{48, "C3"},
		{35, "B1"},
	}
	for _, tc := range cases {
		if got := MidiToName(tc.midi); got != tc.want {
			t.Fatalf("MidiToName(%f) = %q, want %q", tc.midi, got, tc.want)
		}
	}
}

func TestNameToMidi(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"A4", 69},
		{"C4", 60},
		{"c#4", 61},
		{"C3", 48},
	}
	for _, tc := range cases {
		got, err := NameToMidi(tc.name)
		if err != nil {
			t.Fatalf("NameToMidi(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("NameToMidi(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
	if _, err := NameToMidi("H9"); err == nil {
		t.Fatalf("expected error for invalid name")
	}
	if _, err := NameToMidi(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestCents(t *testing.T) {
	if got := Cents(60.25, 60); math.Abs(got-25) > 1e-9 {
		t.Fatalf("expected 25 cents, got %f", got)
	}
	if got := Cents(59.4, 60); math.Abs(got+60) > 1e-9 {
		t.Fatalf("expected -60 cents, got %f", got)
	}
}

func TestIsVoiced(t *testing.T) {
	if !IsVoiced(220, 0.9) {
		t.Fatalf("expected voiced")
	}
	if IsVoiced(220, 0.4) {
		t.Fatalf("low confidence should be unvoiced")
	}
	if IsVoiced(0, 0.9) || IsVoiced(-5, 0.9) {
		t.Fatalf("non-positive hz should be unvoiced")
	}
	if IsVoiced(math.NaN(), 0.9) || IsVoiced(math.Inf(1), 0.9) {
		t.Fatalf("non-finite hz should be unvoiced")
	}
}

func TestMidiToYClamps(t *testing.T) {
	if got := MidiToY(72, 100, 48, 72); got != 0 {
		t.Fatalf("top of range should map to 0, got %f", got)
	}
	if got := MidiToY(48, 100, 48, 72); got != 100 {
		t.Fatalf("bottom of range should map to height, got %f", got)
	}
	if got := MidiToY(90, 100, 48, 72); got != 0 {
		t.Fatalf("above range should clamp to 0, got %f", got)
	}
	if got := MidiToY(10, 100, 48, 72); got != 100 {
		t.Fatalf("below range should clamp to height, got %f", got)
	}
}

func TestMedianSmooth(t *testing.T) {
	in := []float64{60, 60, 75, 60, 60}
	out := MedianSmooth(in, 3)
	if out[2] != 60 {
		t.Fatalf("spike should be filtered, got %f", out[2])
	}
	same := MedianSmooth(in, 1)
	for i := range in {
		if same[i] != in[i] {
			t.Fatalf("window 1 should be a no-op")
		}
	}
}
