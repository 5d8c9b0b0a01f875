package store

import (
	"context"
	"fmt"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
)

// Save inserts a decision record.
// Uses ON CONFLICT(id) DO NOTHING: saving an id twice keeps the first record.
func (s *Store) Save(ctx context.Context, d decision.Decision) error {
	record, err := marshalDecision(d)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}

	var value any
	mlEnhanced := false
	if d.Output != nil {
		value = d.Output.Value
		mlEnhanced = d.Output.MLEnhanced
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO decisions
		(id, kind, created_at, status, confidence, value, ml_enhanced, model_version, execution_time_ms, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`),
		d.ID,
		string(d.Kind),
		toNanos(d.CreatedAt),
		string(d.Status),
		d.Confidence,
		value,
		mlEnhanced,
		d.ModelVersion,
		d.ExecutionTimeMs,
		record,
	)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}

	return nil
}

// SaveOutcome inserts the outcome for a decision.
// Returns inserted=false when an outcome for the same decision already
// exists (UNIQUE decision_id); the stored outcome is left untouched.
func (s *Store) SaveOutcome(ctx context.Context, o decision.Outcome) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO outcomes
		(decision_id, predicted, actual, deviation, accurate, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(decision_id) DO NOTHING
	`),
		o.DecisionID,
		o.Predicted,
		o.Actual,
		o.Deviation,
		o.Accurate,
		toNanos(o.ObservedAt),
	)
	if err != nil {
		return false, fmt.Errorf("save outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save outcome: rows affected: %w", err)
	}
	return affected > 0, nil
}
