package estimate

// SelfAssessmentCompetitive is reported by an Estimator when its own result
// falls inside the normal competitive range for the task size.
const SelfAssessmentCompetitive = "within_competitive_range"

// EstimationInput describes one moving task.
//
// Volume, TeamSize and Distance are required. RoomBreakdown, SpecialItems and
// ParkingDistance are enrichment fields: nil means "not provided", which is
// different from an empty value and lowers confidence.
type EstimationInput struct {
	Volume   float64 `json:"volume"`   // cubic metres
	TeamSize int     `json:"teamSize"` // movers on site
	Distance float64 `json:"distance"` // kilometres between addresses

	Category     string `json:"category,omitempty"`
	PropertyType string `json:"propertyType,omitempty"`
	FromFloor    int    `json:"fromFloor,omitempty"`
	ToFloor      int    `json:"toFloor,omitempty"`
	ElevatorFrom bool   `json:"elevatorFrom,omitempty"`
	ElevatorTo   bool   `json:"elevatorTo,omitempty"`

	RoomBreakdown   map[string]int `json:"roomBreakdown,omitempty"`
	SpecialItems    []string       `json:"specialItems,omitempty"`
	ParkingDistance *float64       `json:"parkingDistance,omitempty"` // metres from door to truck

	// Customer identity. Never retained in decision records.
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	FromAddress   string `json:"fromAddress,omitempty"`
	ToAddress     string `json:"toAddress,omitempty"`
}

// HasRoomBreakdown reports whether the room breakdown enrichment was supplied.
func (in EstimationInput) HasRoomBreakdown() bool { return in.RoomBreakdown != nil }

// HasSpecialItems reports whether the special items enrichment was supplied.
func (in EstimationInput) HasSpecialItems() bool { return in.SpecialItems != nil }

// HasParkingDistance reports whether the parking distance hint was supplied.
func (in EstimationInput) HasParkingDistance() bool { return in.ParkingDistance != nil }

// EstimateResult is the Estimator's baseline answer.
type EstimateResult struct {
	Value          float64            `json:"value"` // hours
	Breakdown      map[string]float64 `json:"breakdown"`
	SelfAssessment string             `json:"selfAssessment,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
}

// Estimator maps a validated input to a baseline estimate.
// Implementations must be deterministic and must not block on I/O.
type Estimator interface {
	Estimate(EstimationInput) EstimateResult
}

// EstimatorFunc adapts a plain function to the Estimator interface.
type EstimatorFunc func(EstimationInput) EstimateResult

// Estimate calls f(in).
func (f EstimatorFunc) Estimate(in EstimationInput) EstimateResult {
	return f(in)
}

// Float returns a pointer to v. Convenience for ParkingDistance literals.
func Float(v float64) *float64 {
	return &v
}
