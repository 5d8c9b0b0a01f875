package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/predictor"
)

// Scenario is a scripted run against a fresh engine.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides engine defaults.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Predictor stubs the second-opinion model when ML fallback is enabled.
	Predictor *PredictorStub `yaml:"predictor,omitempty"`

	// Flow is executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and final metrics.
	Assertions []Assertion `yaml:"assertions"`
}

// ConfigOverrides replaces selected engine.Config fields.
type ConfigOverrides struct {
	ConfidenceThreshold    *float64 `yaml:"confidence_threshold,omitempty"`
	HumanReviewThreshold   *float64 `yaml:"human_review_threshold,omitempty"`
	MLFallbackEnabled      *bool    `yaml:"ml_fallback_enabled,omitempty"`
	AccuracyToleranceHours *float64 `yaml:"accuracy_tolerance_hours,omitempty"`
}

// PredictorStub answers every prediction the same way, or fails with
// Fail ("unavailable", "rejected" or "invalid_response").
type PredictorStub struct {
	Value        float64 `yaml:"value"`
	Confidence   float64 `yaml:"confidence"`
	ModelVersion string  `yaml:"model_version,omitempty"`
	Fail         string  `yaml:"fail,omitempty"`
}

// FlowStep is one engine call. Exactly one of Estimate, Feedback and
// ResetDaily is set.
type FlowStep struct {
	Estimate   map[string]any `yaml:"estimate,omitempty"`
	Feedback   *FeedbackStep  `yaml:"feedback,omitempty"`
	ResetDaily bool           `yaml:"reset_daily,omitempty"`

	// Expect checks the step's outcome. If nil, errors are not checked
	// either.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// FeedbackStep reports an actual value.
type FeedbackStep struct {
	// Decision is a 1-based index into the decisions issued so far.
	Decision int `yaml:"decision,omitempty"`

	// ID names a decision directly, for unknown-id cases.
	ID string `yaml:"id,omitempty"`

	Actual float64 `yaml:"actual"`
}

// ExpectClause specifies the expected step outcome. Unset fields are not
// checked.
type ExpectClause struct {
	Status       string   `yaml:"status,omitempty"`
	Confidence   *float64 `yaml:"confidence,omitempty"`
	MLEnhanced   *bool    `yaml:"ml_enhanced,omitempty"`
	ModelVersion string   `yaml:"model_version,omitempty"`

	// Error is the expected engine error code, e.g. INPUT_VALIDATION.
	Error string `yaml:"error,omitempty"`
}

var stubFailures = map[string]error{
	predictor.ReasonUnavailable:     predictor.ErrUnavailable,
	predictor.ReasonRejected:        predictor.ErrRejected,
	predictor.ReasonInvalidResponse: predictor.ErrInvalidResponse,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if c := s.Config; c != nil && c.MLFallbackEnabled != nil && *c.MLFallbackEnabled && s.Predictor == nil {
		return fmt.Errorf("config.ml_fallback_enabled requires a predictor stub")
	}
	if p := s.Predictor; p != nil && p.Fail != "" {
		if _, ok := stubFailures[p.Fail]; !ok {
			return fmt.Errorf("predictor.fail: unknown failure %q", p.Fail)
		}
	}

	issued := 0
	for i, step := range s.Flow {
		set := 0
		if step.Estimate != nil {
			set++
		}
		if step.Feedback != nil {
			set++
		}
		if step.ResetDaily {
			set++
		}
		if set != 1 {
			return fmt.Errorf("flow[%d]: exactly one of estimate, feedback, reset_daily is required", i)
		}

		switch {
		case step.Estimate != nil:
			// Steps expected to fail validation do not issue a decision.
			if step.Expect == nil || step.Expect.Error == "" {
				issued++
			}
		case step.Feedback != nil:
			fb := step.Feedback
			if (fb.Decision == 0) == (fb.ID == "") {
				return fmt.Errorf("flow[%d].feedback: exactly one of decision, id is required", i)
			}
			if fb.Decision < 0 || fb.Decision > issued {
				return fmt.Errorf("flow[%d].feedback: decision %d is not issued by an earlier step", i, fb.Decision)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
		for _, k := range a.Kinds {
			if !knownKind(k) {
				return fmt.Errorf("assertions[%d]: unknown event kind %q", index, k)
			}
		}
	case AssertEventCount:
		if !knownKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalMetrics:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_metrics", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownKind(k string) bool {
	for _, kind := range events.AllKinds() {
		if string(kind) == k {
			return true
		}
	}
	return false
}
