package estimate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// RateTable is a reference Estimator: a linear model over volume, distance,
// stairs, special items and carrying distance.
type RateTable struct {
	HoursPerM3           float64 `json:"hours_per_m3" yaml:"hours_per_m3"`
	DrivingSpeedKmh      float64 `json:"driving_speed_kmh" yaml:"driving_speed_kmh"`
	StairHoursPerFloorM3 float64 `json:"stair_hours_per_floor_m3" yaml:"stair_hours_per_floor_m3"`
	SpecialItemHours     float64 `json:"special_item_hours" yaml:"special_item_hours"`
	CarryHoursPerMeterM3 float64 `json:"carry_hours_per_meter_m3" yaml:"carry_hours_per_meter_m3"`
	MinimumHours         float64 `json:"minimum_hours" yaml:"minimum_hours"`
	CompetitiveMinPerM3  float64 `json:"competitive_min_per_m3" yaml:"competitive_min_per_m3"`
	CompetitiveMaxPerM3  float64 `json:"competitive_max_per_m3" yaml:"competitive_max_per_m3"`
}

// DefaultRates returns the rate table used when no rates file is configured.
func DefaultRates() RateTable {
	return RateTable{
		HoursPerM3:           0.30,
		DrivingSpeedKmh:      50,
		StairHoursPerFloorM3: 0.02,
		SpecialItemHours:     0.5,
		CarryHoursPerMeterM3: 0.002,
		MinimumHours:         2,
		CompetitiveMinPerM3:  0.08,
		CompetitiveMaxPerM3:  0.25,
	}
}

// rateSchema closes #Rates so typos in a rates file are rejected, and
// supplies the defaults for omitted fields.
const rateSchema = `
#Rates: {
	hours_per_m3:             *0.30 | number & >0
	driving_speed_kmh:        *50 | number & >0
	stair_hours_per_floor_m3: *0.02 | number & >=0
	special_item_hours:       *0.5 | number & >=0
	carry_hours_per_meter_m3: *0.002 | number & >=0
	minimum_hours:            *2 | number & >=0
	competitive_min_per_m3:   *0.08 | number & >=0
	competitive_max_per_m3:   *0.25 | number & >=0
}
`

// LoadRateTable reads a rate table from a .cue, .yaml or .yml file.
// CUE files are checked against the #Rates schema; YAML files start from
// DefaultRates and override what they set.
func LoadRateTable(path string) (RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RateTable{}, fmt.Errorf("read rates file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return parseCUERates(data, path)
	case ".yaml", ".yml":
		rates := DefaultRates()
		if err := yaml.Unmarshal(data, &rates); err != nil {
			return RateTable{}, fmt.Errorf("parse rates %s: %w", path, err)
		}
		if err := rates.validate(); err != nil {
			return RateTable{}, fmt.Errorf("rates %s: %w", path, err)
		}
		return rates, nil
	default:
		return RateTable{}, fmt.Errorf("unsupported rates file extension %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}
}

func parseCUERates(data []byte, filename string) (RateTable, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(rateSchema, cue.Filename("rates_schema.cue"))
	if err := schema.Err(); err != nil {
		return RateTable{}, fmt.Errorf("compile rate schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return RateTable{}, fmt.Errorf("compile rates %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Rates")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return RateTable{}, fmt.Errorf("rates %s: %w", filename, err)
	}

	var rates RateTable
	if err := unified.Decode(&rates); err != nil {
		return RateTable{}, fmt.Errorf("decode rates %s: %w", filename, err)
	}
	return rates, nil
}

func (t RateTable) validate() error {
	if t.HoursPerM3 <= 0 {
		return fmt.Errorf("hours_per_m3 must be > 0")
	}
	if t.DrivingSpeedKmh <= 0 {
		return fmt.Errorf("driving_speed_kmh must be > 0")
	}
	if t.CompetitiveMaxPerM3 < t.CompetitiveMinPerM3 {
		return fmt.Errorf("competitive_max_per_m3 must be >= competitive_min_per_m3")
	}
	return nil
}

// Estimate implements Estimator.
func (t RateTable) Estimate(in EstimationInput) EstimateResult {
	team := float64(in.TeamSize)
	if team < 1 {
		team = 1
	}

	breakdown := map[string]float64{
		"loading": in.Volume * t.HoursPerM3 / team,
		"driving": in.Distance / t.DrivingSpeedKmh,
	}
	var notes []string

	stairs := 0
	if !in.ElevatorFrom && in.FromFloor > 0 {
		stairs += in.FromFloor
	}
	if !in.ElevatorTo && in.ToFloor > 0 {
		stairs += in.ToFloor
	}
	if stairs > 0 {
		breakdown["stairs"] = float64(stairs) * t.StairHoursPerFloorM3 * in.Volume / team
		notes = append(notes, fmt.Sprintf("%d floors carried without elevator", stairs))
	}
	if n := len(in.SpecialItems); n > 0 {
		breakdown["special_items"] = float64(n) * t.SpecialItemHours
	}
	if in.ParkingDistance != nil && *in.ParkingDistance > 0 {
		breakdown["carrying"] = *in.ParkingDistance * t.CarryHoursPerMeterM3 * in.Volume / team
	}

	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	total := 0.0
	for _, k := range keys {
		total += breakdown[k]
	}
	if total < t.MinimumHours {
		breakdown["minimum_adjustment"] = t.MinimumHours - total
		total = t.MinimumHours
		notes = append(notes, "minimum booking applied")
	}

	result := EstimateResult{Value: total, Breakdown: breakdown, Notes: notes}
	if in.Volume > 0 {
		perM3 := total / in.Volume
		if perM3 >= t.CompetitiveMinPerM3 && perM3 <= t.CompetitiveMaxPerM3 {
			result.SelfAssessment = SelfAssessmentCompetitive
		}
	}
	return result
}
