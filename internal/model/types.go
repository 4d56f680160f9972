// Package model defines shared data structures.
package model

import "time"

// Difficulty is an ordered tempo/unlock tier for exercises.
type Difficulty int

// Difficulty levels, lowest first. Higher levels run faster and must be
// unlocked by scoring at least 90 on the level below.
const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

// String returns the serialized difficulty name.
func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return "medium"
	}
}

// ParseDifficulty maps a name to a difficulty. Unknown names map to medium.
func ParseDifficulty(name string) Difficulty {
	switch name {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// ReferenceNote is one concrete, time-stamped target note of a built sequence.
type ReferenceNote struct {
	StartSec   float64
	EndSec     float64
	Midi       int
	Label      string
	GlideStart bool
	GlideEnd   bool
}

// PitchFrame is one captured pitch sample, timed in seconds since session start.
// Voiced is false for silence or unvoiced frames; Hz/Midi are meaningless then.
type PitchFrame struct {
	Time       float64
	Hz         float64
	Midi       float64
	CentsError float64
	VoicedProb float64
	Voiced     bool
}

// TargetSegment is a time-boxed slice of a built sequence, one per exercise
// instance, used for jump-to-segment review.
type TargetSegment struct {
	Index             int
	StartSec          float64
	EndSec            float64
	TransposeSemitone int
}

// ExerciseAttempt is the persisted outcome of one completed run.
type ExerciseAttempt struct {
	ID               int64
	ExerciseID       string
	CategoryID       string
	StartedAt        time.Time
	CompletedAt      time.Time
	OverallScore     float64
	SubScores        map[string]float64
	ContourJSON      string
	TargetNotesJSON  string
	SegmentsJSON     string
	RecordingPath    string
	Difficulty       Difficulty
	MinMidi          int
	MaxMidi          int
	RecorderStartSec float64
}

// Phase is the session state machine position.
type Phase int

// Session phases in transition order.
const (
	PhaseIdle Phase = iota
	PhasePreloading
	PhaseCountdown
	PhaseActive
	PhaseFinished
	PhaseReplay
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreloading:
		return "preloading"
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	case PhaseReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// SessionConfig is the read-only snapshot of settings taken at session start.
type SessionConfig struct {
	ExerciseID    string
	LowestMidi    int
	HighestMidi   int
	Difficulty    Difficulty
	LeadInSec     float64
	LatencyCompMs float64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Category    string
	Difficulty  string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// AttemptAggregate summarizes an attempt for reporting.
type AttemptAggregate struct {
	AttemptID   int64
	CompletedAt time.Time
	ExerciseID  string
	CategoryID  string
	Difficulty  Difficulty
	Score       float64
	DurationMs  int64
}
