package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
)

// Get returns the decision with the given id.
// found is false (with a nil error) when no such decision exists.
func (s *Store) Get(ctx context.Context, id string) (decision.Decision, bool, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT record FROM decisions WHERE id = ?
	`), id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return decision.Decision{}, false, nil
	}
	if err != nil {
		return decision.Decision{}, false, fmt.Errorf("get decision: %w", err)
	}

	d, err := unmarshalDecision(record)
	if err != nil {
		return decision.Decision{}, false, fmt.Errorf("get decision %s: %w", id, err)
	}
	return d, true, nil
}

// Outcomes returns every stored outcome ordered by observation time, then
// decision id.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) Outcomes(ctx context.Context) ([]decision.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT decision_id, predicted, actual, deviation, accurate, observed_at
		FROM outcomes
		ORDER BY observed_at ASC, decision_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []decision.Outcome{}
	for rows.Next() {
		var o decision.Outcome
		var observed int64
		if err := rows.Scan(&o.DecisionID, &o.Predicted, &o.Actual, &o.Deviation, &o.Accurate, &observed); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.ObservedAt = fromNanos(observed)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return outcomes, nil
}

// CountDecisions counts decisions created at or after since.
// A zero since counts everything.
func (s *Store) CountDecisions(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT COUNT(*) FROM decisions WHERE created_at >= ?
	`), sinceNanos(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return n, nil
}

// List returns decisions created in [from, to) ordered by creation time,
// then id. Zero bounds are open.
//
// Returns an empty slice (not nil) if none match.
func (s *Store) List(ctx context.Context, from, to time.Time) ([]decision.Decision, error) {
	upper := int64(1<<63 - 1)
	if !to.IsZero() {
		upper = to.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT record FROM decisions
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, id ASC
	`), sinceNanos(from), upper)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	decisions := []decision.Decision{}
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d, err := unmarshalDecision(record)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return decisions, nil
}

func sinceNanos(t time.Time) int64 {
	if t.IsZero() {
		return -1 << 63
	}
	return t.UnixNano()
}
