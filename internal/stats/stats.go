// Package stats contains attempt statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/scoring"
)

const sparkChars = " .:-=+*#%@"

// CategoryAggregate sums up one exercise category's attempts.
type CategoryAggregate struct {
	CategoryID string
	Attempts   int
	AvgScore   float64
	BestScore  float64
	LastScore  float64
}

// AggregateByCategory folds attempts into per-category aggregates. Input is
// expected oldest first, so the last attempt wins LastScore.
func AggregateByCategory(attempts []model.AttemptAggregate) []CategoryAggregate {
	byCat := map[string]*CategoryAggregate{}
	sums := map[string]float64{}
	order := []string{}
	for _, a := range attempts {
		agg, ok := byCat[a.CategoryID]
		if !ok {
			agg = &CategoryAggregate{CategoryID: a.CategoryID}
			byCat[a.CategoryID] = agg
			order = append(order, a.CategoryID)
		}
		agg.Attempts++
		sums[a.CategoryID] += a.Score
		if a.Score > agg.BestScore {
			agg.BestScore = a.Score
		}
		agg.LastScore = a.Score
	}
	out := make([]CategoryAggregate, 0, len(order))
	for _, id := range order {
		agg := byCat[id]
		agg.AvgScore = sums[id] / float64(agg.Attempts)
		out = append(out, *agg)
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary block for attempts.
func RenderSummary(w io.Writer, attempts []model.AttemptAggregate) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	var total float64
	best := 0.0
	starCounts := map[int]int{}
	for _, a := range attempts {
		total += a.Score
		if a.Score > best {
			best = a.Score
		}
		starCounts[scoring.Stars(a.Score)]++
	}
	count := float64(len(attempts))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Attempts: %d\n", len(attempts)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Score: %.1f\n", total/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best Score: %.1f (%d stars)\n", best, scoring.Stars(best)); err != nil {
		return err
	}
	stars := make([]string, 0, 5)
	for s := 5; s >= 1; s-- {
		if starCounts[s] > 0 {
			stars = append(stars, fmt.Sprintf("%d★×%d", s, starCounts[s]))
		}
	}
	if _, err := fmt.Fprintf(w, "Stars: %s\n", strings.Join(stars, " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCategoryTable prints per-category aggregates, weakest first.
func RenderCategoryTable(w io.Writer, aggs []CategoryAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No category stats found.")
		return err
	}
	sorted := make([]CategoryAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AvgScore == sorted[j].AvgScore {
			return sorted[i].CategoryID < sorted[j].CategoryID
		}
		return sorted[i].AvgScore < sorted[j].AvgScore
	})

	if _, err := fmt.Fprintln(w, "Per-Category"); err != nil {
		return err
	}
	headers := []string{"Category", "Attempts", "Avg", "Best", "Last"}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			agg.CategoryID,
			fmt.Sprintf("%d", agg.Attempts),
			fmt.Sprintf("%.1f", agg.AvgScore),
			fmt.Sprintf("%.1f", agg.BestScore),
			fmt.Sprintf("%.1f", agg.LastScore),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderScoreCurve prints the smoothed score curve for the attempts.
func RenderScoreCurve(w io.Writer, attempts []model.AttemptAggregate, window int) error {
	return RenderScoreCurveWithSize(w, attempts, window, 0, 10)
}

// RenderScoreCurveWithSize prints the score curve sized to a total width.
func RenderScoreCurveWithSize(w io.Writer, attempts []model.AttemptAggregate, window, totalWidth, height int) error {
	if len(attempts) == 0 {
		return nil
	}
	scores := make([]float64, len(attempts))
	for i, a := range attempts {
		scores[i] = a.Score
	}
	scores = MovingAverage(scores, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotScores(w, "Score Curve", scores, width, height)
}

// WeakCategories returns the lowest-average-score category ids, at most top.
func WeakCategories(aggs []CategoryAggregate, top int) []string {
	if len(aggs) == 0 {
		return nil
	}
	sorted := make([]CategoryAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AvgScore == sorted[j].AvgScore {
			return sorted[i].CategoryID < sorted[j].CategoryID
		}
		return sorted[i].AvgScore < sorted[j].AvgScore
	})
	if top <= 0 || top > len(sorted) {
		top = len(sorted)
	}
	out := make([]string, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, sorted[i].CategoryID)
	}
	return out
}
