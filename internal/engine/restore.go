package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
)

// Restore rebuilds the metrics from the decision store: total decisions,
// decisions created at or after dayStart, and every stored outcome. It
// replays the same data on every call, so running it twice yields the same
// counters.
//
// Stores without counting or outcome support leave the corresponding
// counters at zero.
func (e *Engine) Restore(ctx context.Context, dayStart time.Time) error {
	var state metrics.State

	total, err := e.client.CountDecisions(ctx, time.Time{})
	switch {
	case errors.Is(err, decision.ErrUnsupported):
		e.logger.Warn("store cannot count decisions; metrics start empty")
	case err != nil:
		return fmt.Errorf("restore: count decisions: %w", err)
	default:
		state.TotalDecisions = total
		today, err := e.client.CountDecisions(ctx, dayStart)
		if err != nil {
			return fmt.Errorf("restore: count decisions since %s: %w", dayStart.Format(time.RFC3339), err)
		}
		state.DecisionsToday = today
	}

	outcomes, err := e.client.Outcomes(ctx)
	switch {
	case errors.Is(err, decision.ErrUnsupported):
		e.logger.Warn("store cannot list outcomes; accuracy starts empty")
	case err != nil:
		return fmt.Errorf("restore: outcomes: %w", err)
	default:
		state.Observations = make([]metrics.Observation, 0, len(outcomes))
		for _, o := range outcomes {
			state.Observations = append(state.Observations, metrics.Observation{
				DecisionID: o.DecisionID,
				Deviation:  o.Deviation,
				Accurate:   o.Accurate,
			})
		}
	}

	e.metrics.Restore(state)
	snap := e.metrics.Snapshot()
	e.logger.Info("metrics restored",
		"total_decisions", snap.TotalDecisions,
		"decisions_today", snap.DecisionsToday,
		"predictions_observed", snap.PredictionsObserved,
	)
	return nil
}
