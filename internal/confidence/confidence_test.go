package confidence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

func enriched() estimate.EstimationInput {
	return estimate.EstimationInput{
		Volume:          30,
		TeamSize:        3,
		Distance:        20,
		RoomBreakdown:   map[string]int{"bedroom": 2},
		SpecialItems:    []string{},
		ParkingDistance: estimate.Float(10),
	}
}

func TestScore_FullySpecified(t *testing.T) {
	got := Score(enriched(), estimate.EstimateResult{Value: 5})
	assert.InDelta(t, Base, got, 1e-9)
}

func TestScore_ThreeMissingEnrichmentFields(t *testing.T) {
	in := estimate.EstimationInput{Volume: 40, TeamSize: 2, Distance: 15}
	got := Score(in, estimate.EstimateResult{Value: 6})

	want := Base - MissingRoomBreakdownPenalty - MissingSpecialItemsPenalty - MissingParkingDistancePenalty
	assert.InDelta(t, want, got, 1e-9)
}

func TestScore_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*estimate.EstimationInput)
		penalty float64
	}{
		{"large volume", func(in *estimate.EstimationInput) { in.Volume = 120 }, LargeVolumePenalty},
		{"long distance", func(in *estimate.EstimationInput) { in.Distance = 650 }, LongDistancePenalty},
		{"minimal team", func(in *estimate.EstimationInput) { in.TeamSize = 1 }, MinimalTeamPenalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := enriched()
			tt.mutate(&in)
			got := Score(in, estimate.EstimateResult{Value: 5})
			assert.InDelta(t, Base-tt.penalty, got, 1e-9)
		})
	}
}

func TestScore_CompetitiveBonus(t *testing.T) {
	got := Score(enriched(), estimate.EstimateResult{Value: 5, SelfAssessment: estimate.SelfAssessmentCompetitive})
	assert.InDelta(t, Base+CompetitiveBonus, got, 1e-9)
}

func TestScore_StackedPenalties(t *testing.T) {
	in := estimate.EstimationInput{Volume: 200, TeamSize: 1, Distance: 900}
	got := Score(in, estimate.EstimateResult{Value: 40})
	assert.GreaterOrEqual(t, got, 0.0)
	assert.InDelta(t, Base-0.20-0.15-0.10-0.10, got, 1e-9)
}

func TestScore_UnusableShapesDefaultLow(t *testing.T) {
	tests := []struct {
		name string
		in   estimate.EstimationInput
		res  estimate.EstimateResult
	}{
		{"nan value", enriched(), estimate.EstimateResult{Value: math.NaN()}},
		{"inf value", enriched(), estimate.EstimateResult{Value: math.Inf(1)}},
		{"zero value", enriched(), estimate.EstimateResult{Value: 0}},
		{"zero volume", estimate.EstimationInput{TeamSize: 2}, estimate.EstimateResult{Value: 3}},
		{"nan distance", estimate.EstimationInput{Volume: 3, TeamSize: 2, Distance: math.NaN()}, estimate.EstimateResult{Value: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, LowConfidence, Score(tt.in, tt.res))
		})
	}
}

func TestExplain_ListsAdjustments(t *testing.T) {
	_, adj := Explain(estimate.EstimationInput{Volume: 40, TeamSize: 2, Distance: 15}, estimate.EstimateResult{Value: 6})
	reasons := make([]string, 0, len(adj))
	for _, a := range adj {
		reasons = append(reasons, a.Reason)
	}
	assert.Equal(t, []string{"missing_room_breakdown", "missing_special_items", "missing_parking_distance"}, reasons)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.3))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.42, Clamp(0.42))
}
