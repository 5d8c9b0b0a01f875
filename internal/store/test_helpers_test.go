package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDecision creates a decision with every optional part populated.
func createTestDecision(id string, at time.Time, value float64) decision.Decision {
	return decision.Decision{
		ID:        id,
		Kind:      decision.KindTimeEstimation,
		CreatedAt: at,
		Input: estimate.Snapshot{
			Volume:          32.5,
			TeamSize:        3,
			Distance:        18,
			Category:        "hemflytt",
			RoomBreakdown:   map[string]int{"kök": 1, "sovrum": 2},
			SpecialItems:    []string{"piano"},
			ParkingDistance: estimate.Float(15),
		},
		Output: &decision.Output{
			Value:      value,
			Breakdown:  map[string]float64{"loading": value - 1, "driving": 1},
			Confidence: 0.9,
			Notes:      []string{"stairs at origin"},
		},
		Confidence:      0.9,
		Status:          decision.StatusApproved,
		ExecutionTimeMs: 3,
		ModelVersion:    decision.BaselineModelVersion,
	}
}
