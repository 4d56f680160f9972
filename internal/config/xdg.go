// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultExerciseDir returns the default directory for custom exercise files.
func DefaultExerciseDir() string {
	return filepath.Join(XDGConfigHome(), "crescendo", "exercises")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "crescendo", "crescendo.db")
}

// DefaultArchiveDir returns the directory for compressed contour archives.
func DefaultArchiveDir() string {
	return filepath.Join(XDGDataHome(), "crescendo", "contours")
}

// DefaultRecordingDir returns the directory for attempt recordings.
func DefaultRecordingDir() string {
	return filepath.Join(XDGDataHome(), "crescendo", "recordings")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "crescendo", "config.toml")
}
