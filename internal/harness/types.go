package harness

import (
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
)

// TraceEvent is the deterministic projection of one published event.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Kind       string `json:"kind"`
	DecisionID string `json:"decision_id,omitempty"`
	Status     string `json:"status,omitempty"`
	MLEnhanced bool   `json:"ml_enhanced,omitempty"`
	Code       string `json:"code,omitempty"`
	Accurate   *bool  `json:"accurate,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Decisions issued by estimate steps, in flow order.
	Decisions []decision.Decision `json:"-"`

	// Metrics is the final snapshot.
	Metrics metrics.Snapshot `json:"metrics"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Assertion validates the trace or the final metrics.
type Assertion struct {
	// Type is one of event_order, event_count, final_metrics.
	Type string `yaml:"type"`

	// Kinds is the expected kind subsequence (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Kind and Count describe an exact occurrence count (event_count).
	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Expect holds snapshot fields by JSON name (final_metrics).
	// Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventOrder   = "event_order"
	AssertEventCount   = "event_count"
	AssertFinalMetrics = "final_metrics"
)
