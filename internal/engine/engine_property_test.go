package engine

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/confidence"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// Property: for any valid input, predictor opinion and threshold, the
// decision's confidence is in [0,1], the status follows the inclusive
// threshold rule and the predictor value is adopted only on strictly higher
// confidence.
func TestEstimate_DecisionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("confidence bounded, status and adoption rules hold", prop.ForAll(
		func(volume, distance float64, team int, rooms, parking bool, predConf, threshold float64) bool {
			in := estimate.EstimationInput{Volume: volume, TeamSize: team, Distance: distance}
			if rooms {
				in.RoomBreakdown = map[string]int{"living room": 1}
			}
			if parking {
				in.ParkingDistance = estimate.Float(20)
			}
			est := fixedEstimator(8)
			baseConf := confidence.Score(in, est.Estimate(in))

			cfg := mlConfig()
			cfg.ConfidenceThreshold = threshold
			cfg.HumanReviewThreshold = threshold / 2
			e, err := New(est, WithConfig(cfg), WithPredictor(fixedPredictor(3, predConf, "p")))
			if err != nil {
				return false
			}

			d, err := e.Estimate(context.Background(), in)
			if err != nil {
				return false
			}

			adopted := predConf > baseConf
			if d.Output.MLEnhanced != adopted {
				return false
			}
			if adopted && d.Output.Value != 3 {
				return false
			}
			if !adopted && d.Output.Value != 8 {
				return false
			}
			if d.Confidence < 0 || d.Confidence > 1 {
				return false
			}
			return (d.Status == decision.StatusApproved) == (d.Confidence >= threshold)
		},
		gen.Float64Range(0.5, 150),
		gen.Float64Range(0, 600),
		gen.IntRange(1, 8),
		gen.Bool(),
		gen.Bool(),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
