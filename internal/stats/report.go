package stats

import (
	"context"

	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts   []model.AttemptAggregate
	Categories []CategoryAggregate
}

// BuildReport loads and prepares attempt data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return Report{
		Attempts:   attempts,
		Categories: AggregateByCategory(attempts),
	}, nil
}
