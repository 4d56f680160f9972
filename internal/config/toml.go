// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Review   ReviewConfig   `toml:"review"`
}

// PracticeConfig maps practice-related settings. Voice range bounds are note
// names like "G2" or "C5".
type PracticeConfig struct {
	Exercise     *string  `toml:"exercise"`
	Difficulty   *string  `toml:"difficulty"`
	LowestNote   *string  `toml:"lowest-note"`
	HighestNote  *string  `toml:"highest-note"`
	LeadInSec    *float64 `toml:"lead-in"`
	LatencyMs    *float64 `toml:"latency-ms"`
	FocusWeak    *bool    `toml:"focus-weak"`
	WeakTop      *int     `toml:"weak-top"`
	ExerciseDirs []string `toml:"exercise-dirs"`
}

// ReviewConfig maps replay-related settings.
type ReviewConfig struct {
	ManualOffsetMs *float64 `toml:"manual-offset-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
