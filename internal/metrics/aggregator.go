// Package metrics keeps the engine's rolling counters: decisions issued and
// the accuracy observed through feedback.
//
// Every mutation and every Snapshot happens under one mutex, so a snapshot is
// a consistent point-in-time view and concurrent updates are never lost. The
// aggregator has no calendar awareness; ResetDaily is driven externally.
package metrics

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"

// Snapshot is a consistent view of the aggregator.
type Snapshot struct {
	DecisionsToday      int64   `json:"decisionsToday"`
	TotalDecisions      int64   `json:"totalDecisions"`
	PredictionsObserved int64   `json:"predictionsObserved"`
	AccurateCount       int64   `json:"accurateCount"`
	TotalDeviation      float64 `json:"totalDeviation"`
	AccuracyPercent     float64 `json:"accuracyPercent"`
	AvgDeviation        float64 `json:"avgDeviation"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	MLEnabled           bool    `json:"mlEnabled"`
}

// Observation is one feedback sample used by Restore.
type Observation struct {
	DecisionID string
	Deviation  float64
	Accurate   bool
}

// State seeds an aggregator from durable storage.
type State struct {
	TotalDecisions int64
	DecisionsToday int64
	Observations   []Observation
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu                  sync.Mutex
	decisionsToday      int64
	totalDecisions      int64
	predictionsObserved int64
	accurateCount       int64
	totalDeviation      float64
	applied             map[string]struct{}

	confidenceThreshold float64
	mlEnabled           bool

	instruments instruments
	logger      *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMeter mirrors counters to OpenTelemetry instruments created from m.
// Without it the global meter provider is used (a no-op unless configured).
func WithMeter(m metric.Meter) Option {
	return func(a *Aggregator) {
		a.instruments = newInstruments(m, a.logger)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an aggregator. confidenceThreshold and mlEnabled are reported
// verbatim in every Snapshot.
func New(confidenceThreshold float64, mlEnabled bool, opts ...Option) *Aggregator {
	a := &Aggregator{
		applied:             make(map[string]struct{}),
		confidenceThreshold: confidenceThreshold,
		mlEnabled:           mlEnabled,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.instruments.decisions == nil {
		a.instruments = newInstruments(otel.Meter(instrumentationName), a.logger)
	}
	return a
}

// RecordDecision counts one issued decision.
func (a *Aggregator) RecordDecision(ctx context.Context, status string, mlEnhanced bool) {
	a.mu.Lock()
	a.decisionsToday++
	a.totalDecisions++
	a.mu.Unlock()

	a.instruments.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("ml_enhanced", mlEnhanced),
	))
}

// Observe folds one feedback sample into the accuracy counters. It returns
// applied=false, leaving every counter untouched, when feedback for
// decisionID was already observed.
func (a *Aggregator) Observe(ctx context.Context, decisionID string, deviation float64, accurate bool) (Snapshot, bool) {
	a.mu.Lock()
	if _, seen := a.applied[decisionID]; seen {
		snap := a.snapshotLocked()
		a.mu.Unlock()
		return snap, false
	}
	a.applied[decisionID] = struct{}{}
	a.predictionsObserved++
	if accurate {
		a.accurateCount++
	}
	a.totalDeviation += deviation
	snap := a.snapshotLocked()
	a.mu.Unlock()

	a.instruments.deviation.Record(ctx, deviation, metric.WithAttributes(attribute.Bool("accurate", accurate)))
	return snap, true
}

// Applied reports whether feedback for decisionID has been observed.
func (a *Aggregator) Applied(decisionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.applied[decisionID]
	return ok
}

// Snapshot returns a consistent view of all counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// ResetDaily zeroes decisionsToday and returns the snapshot taken just
// before the reset.
func (a *Aggregator) ResetDaily() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	before := a.snapshotLocked()
	a.decisionsToday = 0
	return before
}

// Restore replaces all counters with state. Observations for the same
// decision id are counted once.
func (a *Aggregator) Restore(state State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalDecisions = state.TotalDecisions
	a.decisionsToday = state.DecisionsToday
	a.predictionsObserved = 0
	a.accurateCount = 0
	a.totalDeviation = 0
	a.applied = make(map[string]struct{}, len(state.Observations))
	for _, o := range state.Observations {
		if _, seen := a.applied[o.DecisionID]; seen {
			continue
		}
		a.applied[o.DecisionID] = struct{}{}
		a.predictionsObserved++
		if o.Accurate {
			a.accurateCount++
		}
		a.totalDeviation += o.Deviation
	}
}

func (a *Aggregator) snapshotLocked() Snapshot {
	s := Snapshot{
		DecisionsToday:      a.decisionsToday,
		TotalDecisions:      a.totalDecisions,
		PredictionsObserved: a.predictionsObserved,
		AccurateCount:       a.accurateCount,
		TotalDeviation:      a.totalDeviation,
		ConfidenceThreshold: a.confidenceThreshold,
		MLEnabled:           a.mlEnabled,
	}
	if a.predictionsObserved > 0 {
		n := float64(a.predictionsObserved)
		s.AccuracyPercent = float64(a.accurateCount) / n * 100
		s.AvgDeviation = a.totalDeviation / n
	}
	return s
}
