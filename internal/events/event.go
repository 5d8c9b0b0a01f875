// Package events is the engine's typed publish/subscribe bus.
//
// Every subscriber owns an unbounded FIFO queue drained by a dedicated
// goroutine, so a slow or failing subscriber never delays the publisher or
// its peers. Events are stamped with a sequence number from a logical Clock
// at publish time; a subscriber always sees its events in seq order.
package events

import (
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
)

// Kind names an event stream.
type Kind string

const (
	KindDecision       Kind = "decision"
	KindReviewRequired Kind = "reviewRequired"
	KindLearning       Kind = "learning"
	KindError          Kind = "error"
	KindMetricsReset   Kind = "metricsReset"
)

// AllKinds lists every kind in a stable order.
func AllKinds() []Kind {
	return []Kind{KindDecision, KindReviewRequired, KindLearning, KindError, KindMetricsReset}
}

// Event is one published notification. Payload is one of the typed payload
// structs below, selected by Kind.
type Event struct {
	Kind       Kind      `json:"kind"`
	Seq        int64     `json:"seq"`
	At         time.Time `json:"at"`
	DecisionID string    `json:"decisionId,omitempty"`
	Payload    any       `json:"payload"`
}

// DecisionIssued is the payload of KindDecision and KindReviewRequired.
type DecisionIssued struct {
	Decision decision.Decision `json:"decision"`
}

// Learning is the payload of KindLearning.
type Learning struct {
	Outcome       decision.Outcome `json:"outcome"`
	AccuracySoFar float64          `json:"accuracySoFar"`
	Metrics       metrics.Snapshot `json:"metrics"`
}

// Failure is the payload of KindError.
type Failure struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Decision decision.Decision `json:"decision"`
}

// MetricsReset is the payload of KindMetricsReset.
type MetricsReset struct {
	Before metrics.Snapshot `json:"before"`
	After  metrics.Snapshot `json:"after"`
}
