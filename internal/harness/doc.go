// Package harness runs scripted scenarios against a real engine and checks
// the decisions, the event trace and the final metrics.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: baseline_review
//	description: "What this scenario validates"
//	config:
//	  ml_fallback_enabled: true
//	predictor:
//	  value: 5.0
//	  confidence: 0.92
//	  model_version: ml-v3
//	flow:
//	  - estimate: { volume: 25, teamSize: 1, distance: 12 }
//	    expect:
//	      status: approved
//	      ml_enhanced: true
//	  - feedback: { decision: 1, actual: 6.5 }
//	  - reset_daily: true
//	assertions:
//	  - type: event_order
//	    kinds: [decision, learning, metricsReset]
//	  - type: event_count
//	    kind: reviewRequired
//	    count: 0
//	  - type: final_metrics
//	    expect: { predictionsObserved: 1 }
//
// Feedback steps name their decision either by id or by 1-based position
// among the decisions issued so far in the flow.
//
// # Determinism
//
// Ids come from a testutil.SequenceGenerator ("dec-1", "dec-2", ...) and
// time from a testutil.StepClock, so the same scenario always produces the
// same trace. RunWithGolden compares that trace with
// testdata/golden/<name>.golden.
package harness
