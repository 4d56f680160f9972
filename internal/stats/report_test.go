package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rows := []struct {
		cat   string
		score float64
	}{
		{"scale", 55},
		{"scale", 75},
		{"siren", 88},
	}
	for i, r := range rows {
		_, err := st.InsertAttempt(ctx, model.ExerciseAttempt{
			ExerciseID:   r.cat,
			CategoryID:   r.cat,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
			CompletedAt:  base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			OverallScore: r.score,
			Difficulty:   model.DifficultyMedium,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(report.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(report.Attempts))
	}
	if len(report.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(report.Categories))
	}

	last, err := BuildReport(ctx, st, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("build last: %v", err)
	}
	if len(last.Attempts) != 2 {
		t.Fatalf("expected trimmed attempts, got %d", len(last.Attempts))
	}
	if last.Attempts[0].Score != 75 {
		t.Fatalf("expected newest-2 window, got %+v", last.Attempts)
	}
}
