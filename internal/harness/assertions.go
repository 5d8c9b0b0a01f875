package harness

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// floatTolerance absorbs rounding when comparing metric values.
const floatTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Kind, event.DecisionID)
		}
	}
	return buf.String()
}

func evaluateAssertion(a Assertion, result *Result) error {
	switch a.Type {
	case AssertEventOrder:
		return assertEventOrder(result.Trace, a.Kinds)
	case AssertEventCount:
		return assertEventCount(result.Trace, a.Kind, a.Count)
	case AssertFinalMetrics:
		return assertFinalMetrics(result, a.Expect)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertEventOrder checks that kinds occur in the trace in this order.
// Other events may be interleaved.
func assertEventOrder(trace []TraceEvent, kinds []string) error {
	next := 0
	for _, e := range trace {
		if next < len(kinds) && e.Kind == kinds[next] {
			next++
		}
	}
	if next == len(kinds) {
		return nil
	}

	seen := make([]string, len(trace))
	for i, e := range trace {
		seen[i] = e.Kind
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: strings.Join(kinds, " -> "),
		Actual:   fmt.Sprintf("%s (stopped before %s)", strings.Join(seen, " -> "), kinds[next]),
		Trace:    trace,
	}
}

// assertEventCount checks that kind occurs exactly count times.
func assertEventCount(trace []TraceEvent, kind string, count int) error {
	n := 0
	for _, e := range trace {
		if e.Kind == kind {
			n++
		}
	}
	if n == count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s event(s)", count, kind),
		Actual:   fmt.Sprintf("%d %s event(s)", n, kind),
		Trace:    trace,
	}
}

// assertFinalMetrics matches expected fields against the snapshot's JSON
// form. Fields not named in expect are ignored.
func assertFinalMetrics(result *Result, expect map[string]any) error {
	raw, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	var actual map[string]any
	if err := json.Unmarshal(raw, &actual); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}

	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: no such metric", k))
			continue
		}
		if !valuesEqual(expect[k], got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", k, expect[k], got))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalMetrics,
		Expected: fmt.Sprintf("%v", expect),
		Actual:   strings.Join(mismatches, "; "),
	}
}

// valuesEqual compares a YAML-decoded expectation with a JSON-decoded value.
// Numbers compare as float64 whatever their decoded type.
func valuesEqual(want, got any) bool {
	wf, wok := toFloat(want)
	gf, gok := toFloat(got)
	if wok && gok {
		return closeTo(wf, gf)
	}
	return want == got
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
