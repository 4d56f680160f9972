package scoring

import "github.com/adiwenz/crescendo-sub001/internal/model"

// UnlockThreshold is the minimum score required to unlock the next
// difficulty level.
const UnlockThreshold = 90.0

// Progress tracks the highest unlocked difficulty for one exercise category.
// Unlocking is monotonic: re-attempting a lower level never demotes it.
type Progress struct {
	MaxUnlocked model.Difficulty
}

// Apply records a completed attempt. The next level unlocks only when the
// attempt's difficulty equals the current maximum and the score reaches the
// threshold; levels cannot be skipped.
func (p *Progress) Apply(d model.Difficulty, score float64) {
	if d != p.MaxUnlocked {
		return
	}
	if score < UnlockThreshold {
		return
	}
	if p.MaxUnlocked < model.DifficultyHard {
		p.MaxUnlocked++
	}
}

// Unlocked reports whether the difficulty may be played.
func (p *Progress) Unlocked(d model.Difficulty) bool {
	return d <= p.MaxUnlocked
}

// ProgressFromHistory replays attempt history in completion order and
// returns the resulting unlock state.
func ProgressFromHistory(attempts []model.AttemptAggregate) Progress {
	var p Progress
	for _, a := range attempts {
		p.Apply(a.Difficulty, a.Score)
	}
	return p
}
