package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/predictor"
)

// Config holds the engine's tunables.
type Config struct {
	// ConfidenceThreshold is the approval cutoff (inclusive).
	ConfidenceThreshold float64

	// HumanReviewThreshold flags decisions below it for review. It must not
	// exceed ConfidenceThreshold.
	HumanReviewThreshold float64

	// MLFallbackEnabled gates every predictor consultation.
	MLFallbackEnabled bool

	// AccuracyToleranceHours classifies feedback as accurate.
	AccuracyToleranceHours float64

	PredictorTimeout time.Duration
	StoreTimeout     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:    0.85,
		HumanReviewThreshold:   0.75,
		AccuracyToleranceHours: 1.0,
		PredictorTimeout:       predictor.DefaultTimeout,
		StoreTimeout:           decision.DefaultClientTimeout,
	}
}

// Validate checks threshold ranges and ordering.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"confidence threshold":     c.ConfidenceThreshold,
		"human review threshold":   c.HumanReviewThreshold,
		"accuracy tolerance hours": c.AccuracyToleranceHours,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s %v is not a finite number", name, v))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold %v outside [0,1]", c.ConfidenceThreshold))
	}
	if c.HumanReviewThreshold < 0 || c.HumanReviewThreshold > 1 {
		errs = append(errs, fmt.Errorf("human review threshold %v outside [0,1]", c.HumanReviewThreshold))
	}
	if c.HumanReviewThreshold > c.ConfidenceThreshold {
		errs = append(errs, fmt.Errorf("human review threshold %v exceeds confidence threshold %v",
			c.HumanReviewThreshold, c.ConfidenceThreshold))
	}
	if c.AccuracyToleranceHours < 0 {
		errs = append(errs, fmt.Errorf("accuracy tolerance %v is negative", c.AccuracyToleranceHours))
	}
	return errors.Join(errs...)
}
