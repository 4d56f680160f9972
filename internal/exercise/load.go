package exercise

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

type fileExercise struct {
	ID       string        `toml:"id"`
	Name     string        `toml:"name"`
	Category string        `toml:"category"`
	Family   string        `toml:"family"`
	Multi    bool          `toml:"multi-instance"`
	Step     int           `toml:"step-semitones"`
	HoldSec  float64       `toml:"hold-sec"`
	TailSec  float64       `toml:"tail-sec"`
	Segments []fileSegment `toml:"segment"`
}

type fileSegment struct {
	Kind      string  `toml:"kind"`
	StartSec  float64 `toml:"start"`
	EndSec    float64 `toml:"end"`
	Midi      int     `toml:"midi"`
	EndMidi   int     `toml:"end-midi"`
	Label     string  `toml:"label"`
	Tolerance float64 `toml:"tolerance-cents"`
}

// LoadCustom reads TOML exercise definitions from dir. A missing directory is
// not an error. Malformed files are skipped and reported as warnings so one
// bad file cannot hide the rest of the catalog.
func LoadCustom(dir string) (exercises []Exercise, warnings []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read exercise directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		ex, werr := loadFile(path)
		if werr != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", name, werr))
			continue
		}
		exercises = append(exercises, ex)
	}
	return exercises, warnings, nil
}

func loadFile(path string) (Exercise, error) {
	var raw fileExercise
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Exercise{}, err
	}
	if raw.ID == "" {
		return Exercise{}, fmt.Errorf("missing id")
	}
	if len(raw.Segments) == 0 {
		return Exercise{}, fmt.Errorf("no segments")
	}
	ex := Exercise{
		ID:            raw.ID,
		Name:          raw.Name,
		CategoryID:    raw.Category,
		Family:        Family(raw.Family),
		MultiInstance: raw.Multi,
		StepSemitones: raw.Step,
		HoldSec:       raw.HoldSec,
		TailSec:       raw.TailSec,
	}
	if ex.Name == "" {
		ex.Name = ex.ID
	}
	if ex.CategoryID == "" {
		ex.CategoryID = "custom"
	}
	for i, seg := range raw.Segments {
		kind, err := parseKind(seg.Kind)
		if err != nil {
			return Exercise{}, fmt.Errorf("segment %d: %w", i, err)
		}
		if seg.EndSec <= seg.StartSec {
			return Exercise{}, fmt.Errorf("segment %d: end must be after start", i)
		}
		spec := SegmentSpec{
			Kind:           kind,
			StartSec:       seg.StartSec,
			EndSec:         seg.EndSec,
			Midi:           seg.Midi,
			EndMidi:        seg.EndMidi,
			Label:          seg.Label,
			ToleranceCents: seg.Tolerance,
		}
		if spec.ToleranceCents <= 0 {
			spec.ToleranceCents = 25
		}
		if kind == KindGlide && spec.EndMidi == 0 {
			return Exercise{}, fmt.Errorf("segment %d: glide needs end-midi", i)
		}
		ex.Segments = append(ex.Segments, spec)
	}
	return ex, nil
}

func parseKind(kind string) (SegmentKind, error) {
	switch kind {
	case "", "note":
		return KindNote, nil
	case "glide":
		return KindGlide, nil
	case "rest":
		return KindRest, nil
	default:
		return KindNote, fmt.Errorf("unknown segment kind %q", kind)
	}
}

// Catalog merges the built-in exercises with custom definitions from dir.
// Custom exercises with a built-in id override the built-in.
func Catalog(dir string) (exercises []Exercise, warnings []string, err error) {
	custom, warnings, err := LoadCustom(dir)
	if err != nil {
		return nil, warnings, err
	}
	byID := map[string]int{}
	for _, ex := range Builtins() {
		byID[ex.ID] = len(exercises)
		exercises = append(exercises, ex)
	}
	for _, ex := range custom {
		if i, ok := byID[ex.ID]; ok {
			exercises[i] = ex
			continue
		}
		byID[ex.ID] = len(exercises)
		exercises = append(exercises, ex)
	}
	return exercises, warnings, nil
}
