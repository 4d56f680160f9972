// Package store handles SQLite persistence of exercise attempts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for attempt data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			exercise_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			overall_score REAL NOT NULL,
			sub_scores TEXT NOT NULL,
			contour_json TEXT NOT NULL,
			target_notes_json TEXT NOT NULL,
			segments_json TEXT NOT NULL,
			recording_path TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL,
			min_midi INTEGER NOT NULL,
			max_midi INTEGER NOT NULL,
			recorder_start_sec REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_completed_at ON attempts(completed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_category ON attempts(category_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores a completed attempt and returns its id.
func (s *Store) InsertAttempt(ctx context.Context, a model.ExerciseAttempt) (int64, error) {
	subScores, err := json.Marshal(a.SubScores)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (exercise_id, category_id, started_at, completed_at, overall_score, sub_scores,
			contour_json, target_notes_json, segments_json, recording_path, difficulty, min_midi, max_midi, recorder_start_sec)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ExerciseID,
		a.CategoryID,
		a.StartedAt.Format(time.RFC3339Nano),
		a.CompletedAt.Format(time.RFC3339Nano),
		a.OverallScore,
		string(subScores),
		a.ContourJSON,
		a.TargetNotesJSON,
		a.SegmentsJSON,
		a.RecordingPath,
		a.Difficulty.String(),
		a.MinMidi,
		a.MaxMidi,
		a.RecorderStartSec,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAttempt loads a full attempt row by id.
func (s *Store) GetAttempt(ctx context.Context, id int64) (model.ExerciseAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, exercise_id, category_id, started_at, completed_at, overall_score, sub_scores,
			contour_json, target_notes_json, segments_json, recording_path, difficulty, min_midi, max_midi, recorder_start_sec
		 FROM attempts WHERE id = ?`, id)
	return scanAttempt(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (model.ExerciseAttempt, error) {
	var a model.ExerciseAttempt
	var startedAt, completedAt, subScores, difficulty string
	if err := row.Scan(&a.ID, &a.ExerciseID, &a.CategoryID, &startedAt, &completedAt, &a.OverallScore, &subScores,
		&a.ContourJSON, &a.TargetNotesJSON, &a.SegmentsJSON, &a.RecordingPath, &difficulty, &a.MinMidi, &a.MaxMidi, &a.RecorderStartSec); err != nil {
		return model.ExerciseAttempt{}, err
	}
	var err error
	a.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return model.ExerciseAttempt{}, err
	}
	a.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt)
	if err != nil {
		return model.ExerciseAttempt{}, err
	}
	a.Difficulty = model.ParseDifficulty(difficulty)
	if subScores != "" {
		// Sub-scores are enrichment; a corrupt map is not fatal.
		_ = json.Unmarshal([]byte(subScores), &a.SubScores)
	}
	return a, nil
}

// SetRecordingPath attaches a late-resolved recording path to an attempt.
func (s *Store) SetRecordingPath(ctx context.Context, id int64, path string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE attempts SET recording_path = ? WHERE id = ?`, path, id)
	return err
}

// ListAttempts returns attempt aggregates filtered by stats config, oldest
// first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Category != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, cfg.Category)
	}
	if cfg.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, cfg.Difficulty)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, completed_at, started_at, exercise_id, category_id, difficulty, overall_score
		FROM attempts
		WHERE %s
		ORDER BY completed_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptAggregate
	for rows.Next() {
		var agg model.AttemptAggregate
		var completedAt, startedAt, difficulty string
		if err := rows.Scan(&agg.AttemptID, &completedAt, &startedAt, &agg.ExerciseID, &agg.CategoryID, &difficulty, &agg.Score); err != nil {
			return nil, err
		}
		completed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		started, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		agg.CompletedAt = completed
		agg.DurationMs = completed.Sub(started).Milliseconds()
		agg.Difficulty = model.ParseDifficulty(difficulty)
		attempts = append(attempts, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// CategoryHistory returns the completion-ordered attempts of one category,
// for unlock-state replay.
func (s *Store) CategoryHistory(ctx context.Context, category string) ([]model.AttemptAggregate, error) {
	return s.ListAttempts(ctx, model.StatsConfig{Category: category})
}

// BestScore returns the best overall score for a category and difficulty,
// or zero when no attempts exist.
func (s *Store) BestScore(ctx context.Context, category string, d model.Difficulty) (float64, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(overall_score), 0) FROM attempts WHERE category_id = ? AND difficulty = ?`,
		category, d.String())
	var best float64
	if err := row.Scan(&best); err != nil {
		return 0, err
	}
	return best, nil
}
