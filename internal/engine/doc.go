// Package engine implements the time-estimation decision orchestrator.
//
// An Engine turns an EstimationInput into an auditable Decision:
//
//  1. validate the input (the only failure returned to the caller)
//  2. compute the deterministic baseline and its confidence
//  3. optionally consult the predictor, adopting its value only when its
//     confidence is strictly higher
//  4. derive the status from the confidence threshold
//  5. persist the decision (best effort)
//  6. publish decision / reviewRequired events and count the decision
//
// RecordOutcome closes the loop: the actual value of a past decision is
// folded into the accuracy metrics exactly once per decision id.
//
// Engines are explicit values; there is no package-level state. All methods
// are safe for concurrent use.
package engine
