package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/engine"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/predictor"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/testutil"
)

// Deterministic inputs for every run.
var (
	ClockStart = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	ClockStep  = time.Millisecond
)

// IDPrefix prefixes generated decision ids.
const IDPrefix = "dec"

// Harness runs scenarios against a fresh engine per run.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness. Engine logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes scenario and returns the result.
//
// Execution flow:
//  1. Build an engine with a memory store, step clock, sequence ids and
//     the scenario's config and predictor stub
//  2. Subscribe a trace recorder to every event kind
//  3. Execute flow steps in order, checking expect clauses
//  4. Close the engine so every event reaches the recorder
//  5. Evaluate assertions against the trace and final metrics
//
// A non-nil error means the scenario could not be executed at all.
// Expectation and assertion failures are reported through Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	eng, err := h.newEngine(scenario)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	rec := &recorder{}
	if _, err := eng.Bus().Subscribe("harness-trace", rec.handle); err != nil {
		return nil, fmt.Errorf("subscribe trace recorder: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.runStep(ctx, eng, i, step, result); err != nil {
			_ = eng.Close(ctx)
			return nil, err
		}
	}

	if err := eng.Close(ctx); err != nil {
		return nil, fmt.Errorf("drain events: %w", err)
	}

	result.Trace = rec.trace()
	result.Metrics = eng.Snapshot()

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return result, nil
}

func (h *Harness) newEngine(s *Scenario) (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	cfg.MLFallbackEnabled = s.Predictor != nil
	if o := s.Config; o != nil {
		if o.ConfidenceThreshold != nil {
			cfg.ConfidenceThreshold = *o.ConfidenceThreshold
		}
		if o.HumanReviewThreshold != nil {
			cfg.HumanReviewThreshold = *o.HumanReviewThreshold
		}
		if o.MLFallbackEnabled != nil {
			cfg.MLFallbackEnabled = *o.MLFallbackEnabled
		}
		if o.AccuracyToleranceHours != nil {
			cfg.AccuracyToleranceHours = *o.AccuracyToleranceHours
		}
	}

	clock := testutil.NewStepClock(ClockStart, ClockStep)
	opts := []engine.EngineOption{
		engine.WithConfig(cfg),
		engine.WithStore(decision.NewMemoryStore()),
		engine.WithNow(clock.Now),
		engine.WithIDGenerator(testutil.NewSequenceGenerator(IDPrefix)),
		engine.WithLogger(h.logger),
	}
	if s.Predictor != nil {
		opts = append(opts, engine.WithPredictor(stubPredictor(*s.Predictor)))
	}
	return engine.New(estimate.DefaultRates(), opts...)
}

func stubPredictor(stub PredictorStub) predictor.Predictor {
	return predictor.PredictorFunc(func(context.Context, estimate.Snapshot, predictor.Context) (predictor.Result, error) {
		if stub.Fail != "" {
			return predictor.Result{}, stubFailures[stub.Fail]
		}
		return predictor.Result{
			Value:        stub.Value,
			Confidence:   stub.Confidence,
			ModelVersion: stub.ModelVersion,
		}, nil
	})
}

func (h *Harness) runStep(ctx context.Context, eng *engine.Engine, i int, step FlowStep, result *Result) error {
	switch {
	case step.Estimate != nil:
		// Decoded without validation so invalid inputs reach the engine
		// and produce their error event.
		raw, err := json.Marshal(step.Estimate)
		if err != nil {
			return fmt.Errorf("flow[%d]: encode estimate: %w", i, err)
		}
		var in estimate.EstimationInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return fmt.Errorf("flow[%d]: decode estimate: %w", i, err)
		}

		d, err := eng.Estimate(ctx, in)
		if err == nil {
			result.Decisions = append(result.Decisions, d)
		}
		for _, msg := range checkExpect(step.Expect, &d, err) {
			result.AddError(fmt.Sprintf("flow[%d] estimate: %s", i, msg))
		}

	case step.Feedback != nil:
		id := step.Feedback.ID
		if n := step.Feedback.Decision; n > 0 {
			if n > len(result.Decisions) {
				result.AddError(fmt.Sprintf("flow[%d] feedback: decision %d was never issued", i, n))
				return nil
			}
			id = result.Decisions[n-1].ID
		}
		err := eng.RecordOutcome(ctx, id, step.Feedback.Actual)
		for _, msg := range checkExpect(step.Expect, nil, err) {
			result.AddError(fmt.Sprintf("flow[%d] feedback %s: %s", i, id, msg))
		}

	case step.ResetDaily:
		eng.ResetDaily()
	}
	return nil
}

// checkExpect compares a step outcome against its expect clause. d is nil
// for steps that do not produce a decision.
func checkExpect(exp *ExpectClause, d *decision.Decision, err error) []string {
	if exp == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}

	if exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got none", exp.Error)}
		}
		if got := string(engine.Code(err)); got != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s (%v)", exp.Error, got, err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}
	if d == nil {
		return nil
	}

	var msgs []string
	if exp.Status != "" && string(d.Status) != exp.Status {
		msgs = append(msgs, fmt.Sprintf("status: expected %s, got %s", exp.Status, d.Status))
	}
	if exp.Confidence != nil && !closeTo(d.Confidence, *exp.Confidence) {
		msgs = append(msgs, fmt.Sprintf("confidence: expected %.4f, got %.4f", *exp.Confidence, d.Confidence))
	}
	ml := d.Output != nil && d.Output.MLEnhanced
	if exp.MLEnhanced != nil && ml != *exp.MLEnhanced {
		msgs = append(msgs, fmt.Sprintf("ml_enhanced: expected %t, got %t", *exp.MLEnhanced, ml))
	}
	if exp.ModelVersion != "" && d.ModelVersion != exp.ModelVersion {
		msgs = append(msgs, fmt.Sprintf("model_version: expected %s, got %s", exp.ModelVersion, d.ModelVersion))
	}
	return msgs
}

// recorder collects trace events from the bus.
type recorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	te := TraceEvent{
		Seq:        e.Seq,
		Kind:       string(e.Kind),
		DecisionID: e.DecisionID,
	}
	switch p := e.Payload.(type) {
	case events.DecisionIssued:
		te.Status = string(p.Decision.Status)
		te.MLEnhanced = p.Decision.Output != nil && p.Decision.Output.MLEnhanced
	case events.Learning:
		accurate := p.Outcome.Accurate
		te.Accurate = &accurate
	case events.Failure:
		te.Code = p.Code
		te.Status = string(p.Decision.Status)
	}

	r.mu.Lock()
	r.events = append(r.events, te)
	r.mu.Unlock()
	return nil
}

func (r *recorder) trace() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
