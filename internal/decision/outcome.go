package decision

import (
	"math"
	"time"
)

// Outcome is the ground truth reported for a past decision.
type Outcome struct {
	DecisionID string    `json:"decisionId"`
	Predicted  float64   `json:"predicted"`
	Actual     float64   `json:"actual"`
	Deviation  float64   `json:"deviation"`
	Accurate   bool      `json:"accurate"`
	ObservedAt time.Time `json:"observedAt"`
}

// NewOutcome derives deviation and accuracy for d given the actual value.
// accurate is deviation <= tolerance.
func NewOutcome(d Decision, actual, tolerance float64, observedAt time.Time) Outcome {
	predicted := d.Value()
	deviation := math.Abs(predicted - actual)
	return Outcome{
		DecisionID: d.ID,
		Predicted:  predicted,
		Actual:     actual,
		Deviation:  deviation,
		Accurate:   deviation <= tolerance,
		ObservedAt: observedAt,
	}
}
