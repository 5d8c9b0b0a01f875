// Package decision defines the audit record produced for every estimation and
// the contract of the durable store that keeps it.
//
// A Decision is created exactly once and never mutated afterwards; feedback
// about the real outcome is recorded separately as an Outcome referencing the
// decision id. Store implementations are expected to be append-only.
//
// Client wraps any Store with the guarantees the engine relies on:
//   - calls are bounded by a timeout
//   - stores that are not safe for concurrent use are serialised
//   - optional capabilities (outcomes, counting, listing) degrade to
//     ErrUnsupported instead of panicking
package decision
