package decision

import (
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// Kind tags the decision family.
type Kind string

// KindTimeEstimation is the only decision family produced by this engine.
const KindTimeEstimation Kind = "time_estimation"

// Status is the approval state recorded at creation time.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	// StatusRejected only appears on degenerate records emitted for inputs
	// that failed validation. Such records are never persisted.
	StatusRejected Status = "rejected"
)

// BaselineModelVersion identifies decisions whose value came from the
// deterministic Estimator.
const BaselineModelVersion = "deterministic-v1"

// Output is the answer carried by a decision.
type Output struct {
	Value      float64            `json:"value"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Confidence float64            `json:"confidence"`
	MLEnhanced bool               `json:"mlEnhanced"`
	Notes      []string           `json:"notes,omitempty"`
}

// Baseline keeps the deterministic answer when a predictor value replaced it,
// so audits can compare both.
type Baseline struct {
	Value               float64 `json:"value"`
	Confidence          float64 `json:"confidence"`
	PredictorValue      float64 `json:"predictorValue"`
	PredictorConfidence float64 `json:"predictorConfidence"`
}

// Decision is the immutable audit record of one estimation.
type Decision struct {
	ID              string            `json:"id"`
	Kind            Kind              `json:"kind"`
	CreatedAt       time.Time         `json:"createdAt"`
	Input           estimate.Snapshot `json:"inputSnapshot"`
	Output          *Output           `json:"output,omitempty"`
	Confidence      float64           `json:"confidence"`
	Status          Status            `json:"status"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
	ModelVersion    string            `json:"modelVersion"`
	Baseline        *Baseline         `json:"baseline,omitempty"`
}

// Value returns the estimated value, or 0 for degenerate records.
func (d Decision) Value() float64 {
	if d.Output == nil {
		return 0
	}
	return d.Output.Value
}

// StatusFor applies the approval rule: approved iff confidence >= threshold.
func StatusFor(confidence, threshold float64) Status {
	if confidence >= threshold {
		return StatusApproved
	}
	return StatusPending
}
