package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
)

// decisionView renders a decision. JSON output is the decision record itself.
type decisionView struct {
	decision.Decision
}

func (v decisionView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Decision)
}

func (v decisionView) String() string {
	d := v.Decision
	var b strings.Builder
	fmt.Fprintf(&b, "Decision %s\n", d.ID)
	fmt.Fprintf(&b, "  Created:     %s\n", d.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  Status:      %s\n", d.Status)
	fmt.Fprintf(&b, "  Estimate:    %.2f h\n", d.Value())
	fmt.Fprintf(&b, "  Confidence:  %.2f\n", d.Confidence)
	fmt.Fprintf(&b, "  Model:       %s\n", d.ModelVersion)
	fmt.Fprintf(&b, "  Input:       %.1f m3, %.1f km, team of %d\n", d.Input.Volume, d.Input.Distance, d.Input.TeamSize)
	if d.Output != nil {
		if d.Output.MLEnhanced && d.Baseline != nil {
			fmt.Fprintf(&b, "  Baseline:    %.2f h at %.2f\n", d.Baseline.Value, d.Baseline.Confidence)
		}
		if len(d.Output.Breakdown) > 0 {
			b.WriteString("  Breakdown:\n")
			keys := make([]string, 0, len(d.Output.Breakdown))
			for k := range d.Output.Breakdown {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "    %-16s %7.2f\n", k, d.Output.Breakdown[k])
			}
		}
		for _, n := range d.Output.Notes {
			fmt.Fprintf(&b, "  Note: %s\n", n)
		}
	}
	fmt.Fprintf(&b, "  Took:        %d ms\n", d.ExecutionTimeMs)
	return b.String()
}

// snapshotView renders a metrics snapshot.
type snapshotView struct {
	metrics.Snapshot
}

func (v snapshotView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Snapshot)
}

func (v snapshotView) String() string {
	s := v.Snapshot
	var b strings.Builder
	b.WriteString("Metrics\n")
	fmt.Fprintf(&b, "  Decisions today:       %d\n", s.DecisionsToday)
	fmt.Fprintf(&b, "  Decisions total:       %d\n", s.TotalDecisions)
	fmt.Fprintf(&b, "  Predictions observed:  %d\n", s.PredictionsObserved)
	fmt.Fprintf(&b, "  Accurate:              %d\n", s.AccurateCount)
	fmt.Fprintf(&b, "  Accuracy:              %.1f%%\n", s.AccuracyPercent)
	fmt.Fprintf(&b, "  Avg deviation:         %.4f h\n", s.AvgDeviation)
	fmt.Fprintf(&b, "  Confidence threshold:  %.2f\n", s.ConfidenceThreshold)
	ml := "disabled"
	if s.MLEnabled {
		ml = "enabled"
	}
	fmt.Fprintf(&b, "  ML fallback:           %s\n", ml)
	return b.String()
}

// feedbackView reports an accepted outcome.
type feedbackView struct {
	DecisionID string           `json:"decisionId"`
	Actual     float64          `json:"actual"`
	Metrics    metrics.Snapshot `json:"metrics"`
}

func (v feedbackView) String() string {
	return fmt.Sprintf("Feedback recorded for %s: actual %.2f h\n", v.DecisionID, v.Actual) +
		snapshotView{v.Metrics}.String()
}

// exportView reports a written workbook.
type exportView struct {
	Path  string    `json:"path"`
	Bytes int       `json:"bytes"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

func (v exportView) String() string {
	return fmt.Sprintf("Wrote %s (%d bytes) for %s to %s\n", v.Path, v.Bytes,
		v.From.Format(time.DateOnly), v.To.Format(time.DateOnly))
}
