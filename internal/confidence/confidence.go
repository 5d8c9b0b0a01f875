// Package confidence scores how far a baseline estimate can be trusted.
//
// A fully specified input starts at Base. Each missing enrichment field and
// each known high-variance shape subtracts a fixed penalty; an Estimator that
// reports its result as competitive earns a small bonus. The result is
// always clamped to [0,1].
package confidence

import (
	"math"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// Scoring constants.
const (
	Base = 0.90

	MissingRoomBreakdownPenalty   = 0.10
	MissingSpecialItemsPenalty    = 0.05
	MissingParkingDistancePenalty = 0.05

	LargeVolumePenalty  = 0.15
	LongDistancePenalty = 0.10
	MinimalTeamPenalty  = 0.10

	CompetitiveBonus = 0.05

	// LowConfidence is returned for inputs or results the calculator
	// cannot reason about (non-finite or non-positive values).
	LowConfidence = 0.25
)

// Edge-case thresholds.
const (
	LargeVolumeM3  = 80.0
	LongDistanceKm = 300.0
	MinimalTeam    = 1
)

// Adjustment is one term of a score.
type Adjustment struct {
	Reason string  `json:"reason"`
	Delta  float64 `json:"delta"`
}

// Score returns the confidence for result given in, in [0,1].
func Score(in estimate.EstimationInput, result estimate.EstimateResult) float64 {
	score, _ := Explain(in, result)
	return score
}

// Explain returns the score together with the adjustments that produced it.
func Explain(in estimate.EstimationInput, result estimate.EstimateResult) (float64, []Adjustment) {
	if !usable(in, result) {
		return LowConfidence, []Adjustment{{Reason: "unusable_shape", Delta: LowConfidence - Base}}
	}

	var adj []Adjustment
	if !in.HasRoomBreakdown() {
		adj = append(adj, Adjustment{"missing_room_breakdown", -MissingRoomBreakdownPenalty})
	}
	if !in.HasSpecialItems() {
		adj = append(adj, Adjustment{"missing_special_items", -MissingSpecialItemsPenalty})
	}
	if !in.HasParkingDistance() {
		adj = append(adj, Adjustment{"missing_parking_distance", -MissingParkingDistancePenalty})
	}
	if in.Volume > LargeVolumeM3 {
		adj = append(adj, Adjustment{"large_volume", -LargeVolumePenalty})
	}
	if in.Distance > LongDistanceKm {
		adj = append(adj, Adjustment{"long_distance", -LongDistancePenalty})
	}
	if in.TeamSize <= MinimalTeam {
		adj = append(adj, Adjustment{"minimal_team", -MinimalTeamPenalty})
	}
	if result.SelfAssessment == estimate.SelfAssessmentCompetitive {
		adj = append(adj, Adjustment{"competitive_range", CompetitiveBonus})
	}

	score := Base
	for _, a := range adj {
		score += a.Delta
	}
	return Clamp(score), adj
}

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func usable(in estimate.EstimationInput, result estimate.EstimateResult) bool {
	for _, v := range []float64{in.Volume, in.Distance, result.Value} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return in.Volume > 0 && result.Value > 0
}
