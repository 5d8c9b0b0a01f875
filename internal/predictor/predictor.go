// Package predictor consults an optional learned model for a second opinion
// on a baseline estimate.
//
// The Adapter is the only entry point the engine uses. It bounds every call
// with a timeout and turns every failure into "no opinion"; a broken
// predictor never fails a decision.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// DefaultTimeout bounds a single consultation.
const DefaultTimeout = 2 * time.Second

var (
	// ErrUnavailable means the predictor could not be reached or failed
	// on its side.
	ErrUnavailable = errors.New("predictor unavailable")

	// ErrRejected means the predictor refused the request.
	ErrRejected = errors.New("predictor rejected request")

	// ErrInvalidResponse means the predictor answered with something that is
	// not a usable estimate.
	ErrInvalidResponse = errors.New("predictor returned invalid response")
)

// Context carries what the predictor may know about the baseline.
type Context struct {
	Baseline           float64 `json:"baseline"`
	BaselineConfidence float64 `json:"baselineConfidence"`
}

// Result is the predictor's opinion.
type Result struct {
	Value           float64 `json:"value"`
	Confidence      float64 `json:"confidence"`
	ModelVersion    string  `json:"modelVersion"`
	InferenceTimeMs int64   `json:"inferenceTimeMs"`
}

// Predictor produces an independent estimate. It only ever sees the
// redacted input.
type Predictor interface {
	Predict(ctx context.Context, in estimate.Snapshot, pc Context) (Result, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, in estimate.Snapshot, pc Context) (Result, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, in estimate.Snapshot, pc Context) (Result, error) {
	return f(ctx, in, pc)
}

// Disabled is the predictor used when ML is turned off. The Adapter never
// calls it.
type Disabled struct{}

// Predict always reports the predictor as unavailable.
func (Disabled) Predict(context.Context, estimate.Snapshot, Context) (Result, error) {
	return Result{}, ErrUnavailable
}

// Failure reasons reported in logs.
const (
	ReasonTimeout         = "timeout"
	ReasonCanceled        = "canceled"
	ReasonUnavailable     = "unavailable"
	ReasonRejected        = "rejected"
	ReasonInvalidResponse = "invalid_response"
)

// FailureReason classifies a predictor error.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrRejected):
		return ReasonRejected
	case errors.Is(err, ErrInvalidResponse):
		return ReasonInvalidResponse
	default:
		return ReasonUnavailable
	}
}

// Adapter wraps a Predictor with timeout and failure absorption.
type Adapter struct {
	predictor Predictor
	timeout   time.Duration
	logger    *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter wraps p. A nil p behaves like Disabled.
func NewAdapter(p Predictor, opts ...AdapterOption) *Adapter {
	if p == nil {
		p = Disabled{}
	}
	a := &Adapter{
		predictor: p,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether Consult can ever return a result.
func (a *Adapter) Enabled() bool {
	if a == nil {
		return false
	}
	_, disabled := a.predictor.(Disabled)
	return !disabled
}

type outcome struct {
	res Result
	err error
}

// Consult asks the predictor for a second opinion. ok is false when the
// predictor is disabled, fails, times out or answers with an unusable
// result; failures are logged, never returned. Consult returns within the
// adapter timeout even if the predictor ignores ctx.
func (a *Adapter) Consult(ctx context.Context, in estimate.Snapshot, baseline, baselineConfidence float64) (Result, bool) {
	if !a.Enabled() {
		return Result{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		res, err := a.predictor.Predict(ctx, in, Context{Baseline: baseline, BaselineConfidence: baselineConfidence})
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	elapsed := time.Since(start)

	if out.err == nil {
		out.err = checkResult(out.res)
	}
	if out.err != nil {
		a.logger.Warn("predictor consultation failed",
			"reason", FailureReason(out.err),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", out.err,
		)
		return Result{}, false
	}

	if out.res.InferenceTimeMs == 0 {
		out.res.InferenceTimeMs = elapsed.Milliseconds()
	}
	a.logger.Debug("predictor consulted",
		"value", out.res.Value,
		"confidence", out.res.Confidence,
		"model_version", out.res.ModelVersion,
		"inference_ms", out.res.InferenceTimeMs,
	)
	return out.res, true
}

func checkResult(r Result) error {
	// A move never takes zero hours.
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) || r.Value <= 0 {
		return fmt.Errorf("%w: value %v", ErrInvalidResponse, r.Value)
	}
	if math.IsNaN(r.Confidence) || math.IsInf(r.Confidence, 0) {
		return fmt.Errorf("%w: confidence %v", ErrInvalidResponse, r.Confidence)
	}
	return nil
}
