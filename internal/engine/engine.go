package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/confidence"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/predictor"
)

// UnknownModelVersion is recorded when an adopted predictor result carries
// no model version.
const UnknownModelVersion = "ml-unknown"

// Engine orchestrates estimation decisions.
type Engine struct {
	cfg       Config
	estimator estimate.Estimator
	predictor predictor.Predictor
	adapter   *predictor.Adapter
	store     decision.Store
	client    *decision.Client
	bus       *events.Bus
	metrics   *metrics.Aggregator
	ids       decision.IDGenerator
	now       func() time.Time
	logger    *slog.Logger
}

// EngineOption allows configuration of engine dependencies.
type EngineOption func(*Engine)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithPredictor sets the predictor consulted when ML fallback is enabled.
func WithPredictor(p predictor.Predictor) EngineOption {
	return func(e *Engine) {
		e.predictor = p
	}
}

// WithStore sets the decision store. Default: an in-memory store.
func WithStore(s decision.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithBus sets the event bus. Default: a private bus with no subscribers.
func WithBus(b *events.Bus) EngineOption {
	return func(e *Engine) {
		e.bus = b
	}
}

// WithMetrics sets the metrics aggregator.
func WithMetrics(m *metrics.Aggregator) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithIDGenerator sets the decision id generator. Default: UUIDv7.
func WithIDGenerator(g decision.IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithNow sets the wall clock.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine around estimator.
func New(estimator estimate.Estimator, opts ...EngineOption) (*Engine, error) {
	if estimator == nil {
		return nil, errors.New("engine: estimator is required")
	}

	e := &Engine{
		cfg:       DefaultConfig(),
		estimator: estimator,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.ids == nil {
		e.ids = decision.UUIDv7Generator{}
	}

	if e.cfg.MLFallbackEnabled {
		if e.predictor == nil {
			return nil, errors.New("engine: ML fallback enabled without a predictor")
		}
		e.adapter = predictor.NewAdapter(e.predictor,
			predictor.WithTimeout(e.cfg.PredictorTimeout),
			predictor.WithLogger(e.logger),
		)
	} else {
		e.adapter = predictor.NewAdapter(predictor.Disabled{})
	}

	if e.store == nil {
		e.store = decision.NewMemoryStore()
	}
	e.client = decision.NewClient(e.store, decision.WithTimeout(e.cfg.StoreTimeout))

	if e.bus == nil {
		e.bus = events.NewBus(events.WithLogger(e.logger), events.WithNow(e.now))
	}
	if e.metrics == nil {
		e.metrics = metrics.New(e.cfg.ConfidenceThreshold, e.adapter.Enabled(), metrics.WithLogger(e.logger))
	}

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Bus returns the event bus decisions are published on.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Store returns the store client.
func (e *Engine) Store() *decision.Client {
	return e.client
}

// Estimate produces a decision for in. Only input validation failures are
// returned; predictor and persistence failures degrade to the deterministic
// answer and an unaudited decision respectively.
func (e *Engine) Estimate(ctx context.Context, in estimate.EstimationInput) (decision.Decision, error) {
	start := e.now()

	if err := estimate.Validate(in); err != nil {
		e.reportInvalid(in, start, err)
		return decision.Decision{}, newValidationError(err)
	}

	result := e.estimator.Estimate(in)
	conf := confidence.Score(in, result)
	snapshot := estimate.Redact(in)

	out := &decision.Output{
		Value:      result.Value,
		Breakdown:  maps.Clone(result.Breakdown),
		Confidence: conf,
		Notes:      result.Notes,
	}
	modelVersion := decision.BaselineModelVersion
	var baseline *decision.Baseline

	if pred, ok := e.adapter.Consult(ctx, snapshot, result.Value, conf); ok {
		predConf := confidence.Clamp(pred.Confidence)
		if predConf > conf {
			baseline = &decision.Baseline{
				Value:               result.Value,
				Confidence:          conf,
				PredictorValue:      pred.Value,
				PredictorConfidence: predConf,
			}
			if out.Breakdown == nil {
				out.Breakdown = make(map[string]float64, 1)
			}
			out.Breakdown["ml_adjustment"] = pred.Value - result.Value
			out.Value = pred.Value
			out.MLEnhanced = true
			conf = predConf
			out.Confidence = conf
			modelVersion = pred.ModelVersion
			if modelVersion == "" {
				modelVersion = UnknownModelVersion
			}
		} else {
			e.logger.Debug("predictor result not adopted",
				"baseline_confidence", conf,
				"predictor_confidence", predConf,
			)
		}
	}

	status := decision.StatusFor(conf, e.cfg.ConfidenceThreshold)

	d := decision.Decision{
		ID:              e.ids.Generate(),
		Kind:            decision.KindTimeEstimation,
		CreatedAt:       start.UTC(),
		Input:           snapshot,
		Output:          out,
		Confidence:      conf,
		Status:          status,
		ExecutionTimeMs: e.now().Sub(start).Milliseconds(),
		ModelVersion:    modelVersion,
		Baseline:        baseline,
	}

	// The answer is already computed; the caller cancelling must not lose
	// the audit record.
	if err := e.client.Save(context.WithoutCancel(ctx), d); err != nil {
		e.logger.Error("decision not persisted",
			"id", d.ID,
			"code", ErrCodePersistenceFailure,
			"error", err,
		)
	}

	issued := events.DecisionIssued{Decision: decision.Clone(d)}
	e.bus.Publish(events.KindDecision, d.ID, issued)
	if conf < e.cfg.HumanReviewThreshold {
		e.bus.Publish(events.KindReviewRequired, d.ID, issued)
	}

	e.metrics.RecordDecision(ctx, string(status), out.MLEnhanced)

	e.logger.Info("decision issued",
		"id", d.ID,
		"value", out.Value,
		"confidence", conf,
		"status", status,
		"ml_enhanced", out.MLEnhanced,
		"model_version", modelVersion,
		"execution_ms", d.ExecutionTimeMs,
	)
	return d, nil
}

// reportInvalid publishes an error event carrying a degenerate record. The
// record is never persisted or counted.
func (e *Engine) reportInvalid(in estimate.EstimationInput, at time.Time, err error) {
	d := decision.Decision{
		ID:           e.ids.Generate(),
		Kind:         decision.KindTimeEstimation,
		CreatedAt:    at.UTC(),
		Input:        estimate.Redact(in),
		Confidence:   0,
		Status:       decision.StatusRejected,
		ModelVersion: decision.BaselineModelVersion,
	}
	e.bus.Publish(events.KindError, d.ID, events.Failure{
		Code:     string(ErrCodeInputValidation),
		Message:  err.Error(),
		Decision: d,
	})
	e.logger.Warn("estimation input rejected", "id", d.ID, "error", err)
}

// Snapshot returns the current metrics.
func (e *Engine) Snapshot() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// ResetDaily zeroes the daily decision counter and publishes metricsReset.
// It returns the snapshot taken just before the reset.
func (e *Engine) ResetDaily() metrics.Snapshot {
	before := e.metrics.ResetDaily()
	after := e.metrics.Snapshot()
	e.bus.Publish(events.KindMetricsReset, "", events.MetricsReset{Before: before, After: after})
	e.logger.Info("daily metrics reset", "decisions_today", before.DecisionsToday, "total_decisions", after.TotalDecisions)
	return before
}

// Close drains the event bus.
func (e *Engine) Close(ctx context.Context) error {
	return e.bus.Close(ctx)
}
