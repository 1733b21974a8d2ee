package domain

import (
	"fmt"
	"math"
)

// DefaultImpactFactor is the exposure increase per point of disaster severity.
const DefaultImpactFactor = 0.5

// Simulator perturbs a scored batch with a uniform disaster exposure shift.
type Simulator struct {
	engine       *Engine
	impactFactor float64
}

// NewSimulator returns a simulator that rescores through engine.
func NewSimulator(engine *Engine, impactFactor float64) (*Simulator, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: simulator requires a scoring engine", ErrValidation)
	}
	if impactFactor < 0 || math.IsNaN(impactFactor) || math.IsInf(impactFactor, 0) {
		return nil, fmt.Errorf("%w: impact factor must be a non-negative number, got %v", ErrValidation, impactFactor)
	}
	return &Simulator{engine: engine, impactFactor: impactFactor}, nil
}

// ApplyDisaster returns a new batch where each region's exposure is raised by
// severity*impactFactor, clamped to 100, and its index and category rederived.
// The input slice is not modified.
func (s *Simulator) ApplyDisaster(regions []RegionScore, severity int) ([]RegionScore, error) {
	if err := ValidateSeverity(severity); err != nil {
		return nil, err
	}

	shift := float64(severity) * s.impactFactor
	out := make([]RegionScore, len(regions))
	for i, r := range regions {
		r.Exposure = clamp(r.Exposure + shift)
		out[i] = s.engine.Rescore(r)
	}
	return out, nil
}

// ValidateSeverity rejects severities outside [0, 100].
func ValidateSeverity(severity int) error {
	if severity < 0 || severity > 100 {
		return fmt.Errorf("%w: severity must be between 0 and 100, got %d", ErrValidation, severity)
	}
	return nil
}

// SeverityLabel describes a disaster severity for display.
func SeverityLabel(severity int) string {
	switch {
	case severity <= 0:
		return "No disaster"
	case severity < 20:
		return "Tropical disturbance"
	case severity < 40:
		return "Tropical depression"
	case severity < 60:
		return "Moderate tropical storm"
	case severity < 80:
		return "Severe tropical cyclone"
	default:
		return "Intense tropical cyclone"
	}
}
