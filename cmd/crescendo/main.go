// Package main provides the CLI entrypoint for crescendo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/adiwenz/crescendo-sub001/internal/capture"
	"github.com/adiwenz/crescendo-sub001/internal/config"
	"github.com/adiwenz/crescendo-sub001/internal/contour"
	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/pitch"
	"github.com/adiwenz/crescendo-sub001/internal/reviewui"
	"github.com/adiwenz/crescendo-sub001/internal/scoring"
	"github.com/adiwenz/crescendo-sub001/internal/sequence"
	"github.com/adiwenz/crescendo-sub001/internal/session"
	"github.com/adiwenz/crescendo-sub001/internal/stats"
	"github.com/adiwenz/crescendo-sub001/internal/store"
	"github.com/adiwenz/crescendo-sub001/internal/tui"
)

const (
	defaultExercise    = "five-note-scale"
	defaultDifficulty  = "medium"
	defaultLowestNote  = "G2"
	defaultHighestNote = "C5"
	defaultLeadIn      = 3.0
	defaultLatencyMs   = 0.0
	defaultCurveWindow = 5
	defaultWeakTop     = 2
)

var (
	practiceExercise    string
	practiceDifficulty  string
	practiceLowestNote  string
	practiceHighestNote string
	practiceLeadIn      float64
	practiceLatencyMs   float64
	practiceContour     string
	practiceJitter      float64
	practiceExDir       string
	practiceFocusWeak   bool
	practiceWeakTop     int

	statsCategory    string
	statsDifficulty  string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	reviewCategory string
	reviewOffsetMs float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crescendo",
		Short:         "TUI vocal exercise trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceExercise, "exercise", defaultExercise, "exercise id")
	rootCmd.Flags().StringVar(&practiceDifficulty, "difficulty", defaultDifficulty, "difficulty (easy, medium, hard)")
	rootCmd.Flags().StringVar(&practiceLowestNote, "low", defaultLowestNote, "lowest comfortable note (e.g. G2)")
	rootCmd.Flags().StringVar(&practiceHighestNote, "high", defaultHighestNote, "highest comfortable note (e.g. C5)")
	rootCmd.Flags().Float64Var(&practiceLeadIn, "lead-in", defaultLeadIn, "countdown seconds before the first note")
	rootCmd.Flags().Float64Var(&practiceLatencyMs, "latency-ms", defaultLatencyMs, "capture latency compensation in milliseconds")
	rootCmd.Flags().StringVar(&practiceContour, "contour", "", "replay a recorded contour file instead of live capture")
	rootCmd.Flags().Float64Var(&practiceJitter, "synth-jitter", 15, "simulated singer jitter in cents")
	rootCmd.Flags().StringVar(&practiceExDir, "exercise-dir", "", "directory with custom exercise TOML files")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "practice the weakest category instead of the configured exercise")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak categories to consider")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newExercisesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReviewCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "exercise", &practiceExercise, fileCfg.Practice.Exercise)
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, fileCfg.Practice.Difficulty)
	applyStringConfig(cmd, "low", &practiceLowestNote, fileCfg.Practice.LowestNote)
	applyStringConfig(cmd, "high", &practiceHighestNote, fileCfg.Practice.HighestNote)
	applyFloatConfig(cmd, "lead-in", &practiceLeadIn, fileCfg.Practice.LeadInSec)
	applyFloatConfig(cmd, "latency-ms", &practiceLatencyMs, fileCfg.Practice.LatencyMs)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)

	low, err := pitch.NameToMidi(practiceLowestNote)
	if err != nil {
		return fmt.Errorf("invalid --low: %w", err)
	}
	high, err := pitch.NameToMidi(practiceHighestNote)
	if err != nil {
		return fmt.Errorf("invalid --high: %w", err)
	}
	if high <= low {
		return fmt.Errorf("--high must be above --low")
	}
	if practiceLeadIn < 0 {
		return fmt.Errorf("--lead-in must be >= 0")
	}
	difficulty := model.ParseDifficulty(practiceDifficulty)

	catalog, warnings, err := exercise.Catalog(resolveExerciseDir(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to load exercises: %w", err)
	}
	for _, w := range warnings {
		logErrln(w)
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if practiceFocusWeak && !cmd.Flags().Changed("exercise") {
		if picked, ok := pickWeakExercise(st, catalog, practiceWeakTop); ok {
			practiceExercise = picked
		}
	}
	ex, ok := exercise.FindByID(catalog, practiceExercise)
	if !ok {
		return fmt.Errorf("unknown exercise %q (run: crescendo exercises)", practiceExercise)
	}

	history, err := st.CategoryHistory(context.Background(), ex.CategoryID)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	progress := scoring.ProgressFromHistory(history)
	if !progress.Unlocked(difficulty) {
		return fmt.Errorf("difficulty %s is locked for %s; score %.0f at %s first",
			difficulty, ex.CategoryID, scoring.UnlockThreshold, progress.MaxUnlocked)
	}

	cfg := model.SessionConfig{
		ExerciseID:    ex.ID,
		LowestMidi:    low,
		HighestMidi:   high,
		Difficulty:    difficulty,
		LeadInSec:     practiceLeadIn,
		LatencyCompMs: practiceLatencyMs,
	}
	seq := sequence.Build(ex, low, high, difficulty, practiceLeadIn)
	if seq.Empty() {
		return fmt.Errorf("exercise %q does not fit the range %s-%s", ex.ID, practiceLowestNote, practiceHighestNote)
	}

	source := newCaptureSource(seq)
	controller := session.New(cfg, ex, seq, source, nil, nil, "")

	uiModel := tui.NewModel(controller, st, cfg, ex, seq)
	uiModel.OnFinish = func(outcome session.Outcome) {
		if err := persistOutcome(st, cfg, ex, seq, outcome); err != nil {
			logErrf("failed to save attempt: %v\n", err)
		}
	}
	program := tea.NewProgram(uiModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		controller.Teardown()
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// pickWeakExercise selects an exercise from the lowest-average-score
// categories. Without attempt history there is nothing to rank, so the
// configured exercise stands.
func pickWeakExercise(st *store.Store, catalog []exercise.Exercise, top int) (string, bool) {
	attempts, err := st.ListAttempts(context.Background(), model.StatsConfig{})
	if err != nil {
		logErrf("failed to load weak-category stats: %v\n", err)
		return "", false
	}
	weak := stats.WeakCategories(stats.AggregateByCategory(attempts), top)
	picked, ok := exercise.FirstInCategories(catalog, weak)
	if !ok {
		logErrln("no stats available for weak-category focus yet; using the configured exercise")
		return "", false
	}
	return picked.ID, true
}

// newCaptureSource picks the capture backend: a recorded contour replay when
// requested, a simulated singer otherwise.
func newCaptureSource(seq sequence.Result) capture.Source {
	if practiceContour != "" {
		return &capture.FileSource{Path: practiceContour}
	}
	return &capture.SynthSource{
		Notes:       seq.Notes,
		TotalSec:    seq.TotalSec,
		JitterCents: practiceJitter,
	}
}

// persistOutcome writes the attempt row and its compressed contour archive.
func persistOutcome(st *store.Store, cfg model.SessionConfig, ex exercise.Exercise, seq sequence.Result, outcome session.Outcome) error {
	minMidi, maxMidi := ex.MidiRange()
	attempt := model.ExerciseAttempt{
		ExerciseID:      ex.ID,
		CategoryID:      ex.CategoryID,
		StartedAt:       outcome.StartedAt,
		CompletedAt:     outcome.CompletedAt,
		OverallScore:    outcome.Result.Overall,
		SubScores:       outcome.Result.SubScores,
		ContourJSON:     string(contour.EncodeContour(outcome.Frames)),
		TargetNotesJSON: string(contour.EncodeTargets(seq.Notes)),
		SegmentsJSON:    string(contour.EncodeSegments(seq.Segments)),
		RecordingPath:   outcome.RecordingPath,
		Difficulty:      cfg.Difficulty,
		MinMidi:         minMidi + seq.Transpose,
		MaxMidi:         maxMidi + seq.Transpose,
	}
	ctx := context.Background()
	id, err := st.InsertAttempt(ctx, attempt)
	if err != nil {
		return err
	}
	if _, err := contour.WriteArchive(config.DefaultArchiveDir(), id, outcome.Frames); err != nil {
		// The row is authoritative; the archive is a best-effort copy.
		logErrf("failed to write contour archive: %v\n", err)
	}
	return nil
}

func resolveExerciseDir(fileCfg config.FileConfig) string {
	if practiceExDir != "" {
		return practiceExDir
	}
	if len(fileCfg.Practice.ExerciseDirs) > 0 {
		return fileCfg.Practice.ExerciseDirs[0]
	}
	return config.DefaultExerciseDir()
}

func newExercisesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List exercises and unlock state",
		Args:  cobra.NoArgs,
		RunE:  runExercisesCmd,
	}
}

func runExercisesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	catalog, warnings, err := exercise.Catalog(resolveExerciseDir(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to load exercises: %w", err)
	}
	for _, w := range warnings {
		logErrln(w)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	for _, ex := range catalog {
		history, err := st.CategoryHistory(ctx, ex.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}
		progress := scoring.ProgressFromHistory(history)
		lo, hi := ex.MidiRange()
		line := fmt.Sprintf("%-18s %-10s %s-%s  unlocked up to %s",
			ex.ID, ex.Family,
			pitch.MidiToName(float64(lo)), pitch.MidiToName(float64(hi)),
			progress.MaxUnlocked)
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show attempt stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsCategory, "category", "", "category filter")
	cmd.Flags().StringVar(&statsDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Attempts); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	if err := stats.RenderCategoryTable(out, report.Categories); err != nil {
		return fmt.Errorf("failed to render categories: %w", err)
	}
	if err := stats.RenderScoreCurve(out, report.Attempts, cfg.CurveWindow); err != nil {
		return fmt.Errorf("failed to render curve: %w", err)
	}
	return nil
}

func statsConfig() (model.StatsConfig, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	return model.StatsConfig{
		Category:    statsCategory,
		Difficulty:  statsDifficulty,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}, nil
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Browse and replay past attempts",
		RunE:  runReviewCmd,
	}
	cmd.Flags().StringVar(&reviewCategory, "category", "", "category filter")
	cmd.Flags().Float64Var(&reviewOffsetMs, "offset-ms", 0, "manual reference track offset in milliseconds")
	return cmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cmd.Flags().Changed("offset-ms") && fileCfg.Review.ManualOffsetMs != nil {
		reviewOffsetMs = *fileCfg.Review.ManualOffsetMs
	}
	catalog, warnings, err := exercise.Catalog(resolveExerciseDir(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to load exercises: %w", err)
	}
	for _, w := range warnings {
		logErrln(w)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	cfg := model.StatsConfig{Category: reviewCategory, CurveWindow: defaultCurveWindow}
	uiModel := reviewui.NewModel(st, cfg, catalog, nil, reviewOffsetMs)
	uiModel.ArchiveDir = config.DefaultArchiveDir()
	program := tea.NewProgram(uiModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run review TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# crescendo configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# exercise = %q      # Default exercise id
# difficulty = %q    # easy, medium or hard
# lowest-note = %q   # Lowest comfortable note
# highest-note = %q  # Highest comfortable note
# lead-in = %.1f     # Countdown seconds before the first note
# latency-ms = %.1f  # Capture latency compensation
# focus-weak = false # Practice the weakest category
# weak-top = %d      # Number of weak categories to consider

[review]
# manual-offset-ms = 0.0  # Reference track offset during replay
`,
		defaultExercise,
		defaultDifficulty,
		defaultLowestNote,
		defaultHighestNote,
		defaultLeadIn,
		defaultLatencyMs,
		defaultWeakTop,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
