// Package estimate defines the task description consumed by the decision
// engine and the contract of the deterministic Estimator that turns it into a
// baseline number of hours.
//
// The Estimator itself is an external collaborator. RateTable is a small
// reference implementation used by the CLI; its formula is not part of the
// engine contract and may be replaced by any Estimator.
//
// Inputs are validated against a JSON Schema (draft 2020-12) before any
// computation. Only a redacted Snapshot of an input is ever retained in a
// decision record: customer identity and addresses are dropped.
package estimate
