package estimate

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Snapshot is the redacted, non-PII view of an input kept in a decision.
type Snapshot struct {
	Volume          float64        `json:"volume"`
	TeamSize        int            `json:"teamSize"`
	Distance        float64        `json:"distance"`
	Category        string         `json:"category,omitempty"`
	PropertyType    string         `json:"propertyType,omitempty"`
	FromFloor       int            `json:"fromFloor,omitempty"`
	ToFloor         int            `json:"toFloor,omitempty"`
	ElevatorFrom    bool           `json:"elevatorFrom,omitempty"`
	ElevatorTo      bool           `json:"elevatorTo,omitempty"`
	RoomBreakdown   map[string]int `json:"roomBreakdown,omitempty"`
	SpecialItems    []string       `json:"specialItems,omitempty"`
	ParkingDistance *float64       `json:"parkingDistance,omitempty"`
}

// Redact copies the numeric and categorical fields of in. Categorical values
// are NFC-normalised, trimmed and lower-cased so "Städning" typed with a
// combining diaeresis matches the precomposed form.
func Redact(in EstimationInput) Snapshot {
	s := Snapshot{
		Volume:       in.Volume,
		TeamSize:     in.TeamSize,
		Distance:     in.Distance,
		Category:     NormalizeLabel(in.Category),
		PropertyType: NormalizeLabel(in.PropertyType),
		FromFloor:    in.FromFloor,
		ToFloor:      in.ToFloor,
		ElevatorFrom: in.ElevatorFrom,
		ElevatorTo:   in.ElevatorTo,
	}
	if in.RoomBreakdown != nil {
		s.RoomBreakdown = make(map[string]int, len(in.RoomBreakdown))
		for room, n := range in.RoomBreakdown {
			s.RoomBreakdown[NormalizeLabel(room)] += n
		}
	}
	if in.SpecialItems != nil {
		s.SpecialItems = make([]string, 0, len(in.SpecialItems))
		for _, item := range in.SpecialItems {
			if label := NormalizeLabel(item); label != "" {
				s.SpecialItems = append(s.SpecialItems, label)
			}
		}
		sort.Strings(s.SpecialItems)
	}
	if in.ParkingDistance != nil {
		s.ParkingDistance = Float(*in.ParkingDistance)
	}
	return s
}

// NormalizeLabel canonicalises a categorical string.
func NormalizeLabel(v string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(v)))
}
