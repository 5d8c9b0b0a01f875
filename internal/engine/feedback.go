package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

// RecordOutcome folds the actual value of decision id into the accuracy
// metrics and publishes a learning event.
//
// Unknown ids fail with ErrFeedbackNotFound and leave metrics untouched.
// Feedback for a decision that already received feedback is ignored; the
// first reported value wins.
func (e *Engine) RecordOutcome(ctx context.Context, id string, actual float64) error {
	if math.IsNaN(actual) || math.IsInf(actual, 0) || actual < 0 {
		return newValidationError(&estimate.ValidationError{Fields: []estimate.FieldError{
			{Field: "actual", Message: fmt.Sprintf("must be a finite non-negative number, got %v", actual)},
		}})
	}

	d, found, err := e.client.Get(ctx, id)
	if err != nil && !errors.Is(err, decision.ErrNotFound) {
		return newPersistenceError("decision lookup", id, err)
	}
	if !found || d.Output == nil {
		e.logger.Warn("feedback for unknown decision", "id", id)
		return newNotFoundError(id)
	}

	outcome := decision.NewOutcome(d, actual, e.cfg.AccuracyToleranceHours, e.now().UTC())

	snap, applied := e.metrics.Observe(ctx, id, outcome.Deviation, outcome.Accurate)
	if !applied {
		e.logger.Info("duplicate feedback ignored", "id", id, "actual", actual)
		return nil
	}

	if _, err := e.client.SaveOutcome(context.WithoutCancel(ctx), outcome); err != nil && !errors.Is(err, decision.ErrUnsupported) {
		e.logger.Error("outcome not persisted",
			"id", id,
			"code", ErrCodePersistenceFailure,
			"error", err,
		)
	}

	e.bus.Publish(events.KindLearning, id, events.Learning{
		Outcome:       outcome,
		AccuracySoFar: snap.AccuracyPercent,
		Metrics:       snap,
	})

	e.logger.Info("outcome recorded",
		"id", id,
		"predicted", outcome.Predicted,
		"actual", actual,
		"deviation", outcome.Deviation,
		"accurate", outcome.Accurate,
		"accuracy_percent", snap.AccuracyPercent,
	)
	return nil
}
