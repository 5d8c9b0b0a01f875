package decision

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by lookups for unknown ids.
	ErrNotFound = errors.New("decision not found")

	// ErrUnsupported is returned by Client when the wrapped store lacks an
	// optional capability.
	ErrUnsupported = errors.New("operation not supported by store")
)

// Store persists decisions. Save must be append-only: saving an id twice
// keeps the first record.
type Store interface {
	Save(ctx context.Context, d Decision) error
	Get(ctx context.Context, id string) (Decision, bool, error)
}

// OutcomeStore persists feedback. SaveOutcome reports inserted=false when an
// outcome for the same decision already exists.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, o Outcome) (inserted bool, err error)
	Outcomes(ctx context.Context) ([]Outcome, error)
}

// Counter counts stored decisions created at or after since.
// A zero since counts everything.
type Counter interface {
	CountDecisions(ctx context.Context, since time.Time) (int64, error)
}

// Lister returns decisions created in [from, to), oldest first.
// Zero bounds are open.
type Lister interface {
	List(ctx context.Context, from, to time.Time) ([]Decision, error)
}

// ConcurrencySafe is implemented by stores that tolerate concurrent calls.
// Client serialises access to stores that do not implement it or return false.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}
