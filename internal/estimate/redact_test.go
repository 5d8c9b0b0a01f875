package estimate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_DropsCustomerFields(t *testing.T) {
	in := EstimationInput{
		Volume:        30,
		TeamSize:      2,
		Distance:      12,
		Category:      "Flytt",
		CustomerName:  "Anna Svensson",
		CustomerEmail: "anna@example.se",
		CustomerPhone: "+46701234567",
		FromAddress:   "Storgatan 1",
		ToAddress:     "Lillgatan 2",
	}

	data, err := json.Marshal(Redact(in))
	require.NoError(t, err)

	for _, pii := range []string{"Anna", "anna@example.se", "+46701234567", "Storgatan", "Lillgatan"} {
		assert.NotContains(t, string(data), pii)
	}
	assert.Contains(t, string(data), `"category":"flytt"`)
}

func TestRedact_NormalizesLabels(t *testing.T) {
	decomposed := " Sta\u0308dning" // combining diaeresis, leading space
	precomposed := "städning"

	s := Redact(EstimationInput{Volume: 1, TeamSize: 1, Category: decomposed})
	assert.Equal(t, precomposed, s.Category)
}

func TestRedact_PreservesEnrichmentPresence(t *testing.T) {
	bare := Redact(EstimationInput{Volume: 1, TeamSize: 1})
	assert.Nil(t, bare.RoomBreakdown)
	assert.Nil(t, bare.SpecialItems)
	assert.Nil(t, bare.ParkingDistance)

	parking := 7.5
	enriched := Redact(EstimationInput{
		Volume:          1,
		TeamSize:        1,
		RoomBreakdown:   map[string]int{"Kök": 1, "kök": 1},
		SpecialItems:    []string{" Piano", "akvarium"},
		ParkingDistance: &parking,
	})
	assert.Equal(t, map[string]int{"kök": 2}, enriched.RoomBreakdown)
	assert.Equal(t, []string{"akvarium", "piano"}, enriched.SpecialItems)
	require.NotNil(t, enriched.ParkingDistance)
	assert.Equal(t, 7.5, *enriched.ParkingDistance)

	parking = 100
	assert.Equal(t, 7.5, *enriched.ParkingDistance, "snapshot must not alias the input")
}
