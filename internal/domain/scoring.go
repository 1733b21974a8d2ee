package domain

import (
	"fmt"
	"math"
)

// Weights are the coefficients of the composite risk formula.
type Weights struct {
	Exposure      float64 `json:"exposure"`
	Vulnerability float64 `json:"vulnerability"`
	Adaptation    float64 `json:"adaptation"`
}

// Threshold binds the half-open score range [Min, Max) to a category.
type Threshold struct {
	Category Category `json:"category"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
}

// ScoringConfig is the immutable parameter set of a scoring session.
type ScoringConfig struct {
	Weights    Weights
	Thresholds []Threshold
}

// DefaultScoringConfig returns the canonical weights (0.45/0.35/0.20) and the
// four-tier thresholds critical <30, low <50, medium <70, high <=100.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{Exposure: 0.45, Vulnerability: 0.35, Adaptation: 0.20},
		Thresholds: []Threshold{
			{Category: CategoryCritical, Min: 0, Max: 30},
			{Category: CategoryLow, Min: 30, Max: 50},
			{Category: CategoryMedium, Min: 50, Max: 70},
			{Category: CategoryHigh, Min: 70, Max: 100},
		},
	}
}

// Validate checks that weights are non-negative and that the thresholds are
// ordered, contiguous, and cover exactly [0, 100].
func (c ScoringConfig) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{"exposure": w.Exposure, "vulnerability": w.Vulnerability, "adaptation": w.Adaptation} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight must be a non-negative number, got %v", ErrValidation, name, v)
		}
	}

	if len(c.Thresholds) == 0 {
		return fmt.Errorf("%w: no category thresholds", ErrValidation)
	}
	if c.Thresholds[0].Min != 0 {
		return fmt.Errorf("%w: first threshold must start at 0, got %v", ErrValidation, c.Thresholds[0].Min)
	}
	if last := c.Thresholds[len(c.Thresholds)-1]; last.Max != 100 {
		return fmt.Errorf("%w: last threshold must end at 100, got %v", ErrValidation, last.Max)
	}
	for i, t := range c.Thresholds {
		if t.Min >= t.Max {
			return fmt.Errorf("%w: threshold %q has empty range [%v, %v)", ErrValidation, t.Category, t.Min, t.Max)
		}
		if i > 0 && c.Thresholds[i-1].Max != t.Min {
			return fmt.Errorf("%w: thresholds %q and %q are not contiguous", ErrValidation, c.Thresholds[i-1].Category, t.Category)
		}
	}
	return nil
}

// Engine maps normalized factors to a resilience index and category.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg ScoringConfig
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg ScoringConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	thresholds := make([]Threshold, len(cfg.Thresholds))
	copy(thresholds, cfg.Thresholds)
	cfg.Thresholds = thresholds
	return &Engine{cfg: cfg}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() ScoringConfig {
	cfg := e.cfg
	cfg.Thresholds = append([]Threshold(nil), e.cfg.Thresholds...)
	return cfg
}

// ScoreOne computes the resilience index for one set of factors:
//
//	risk  = w_e*E + w_v*V - w_a*A
//	score = clamp(100 - risk, 0, 100), rounded to 2 decimals
//
// Each factor is clamped to [0, 100] first. Non-finite factors are rejected.
func (e *Engine) ScoreOne(exposure, vulnerability, adaptation float64) (float64, error) {
	for name, v := range map[string]float64{"exposure": exposure, "vulnerability": vulnerability, "adaptation": adaptation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %s must be finite, got %v", ErrValidation, name, v)
		}
	}
	return e.score(clamp(exposure), clamp(vulnerability), clamp(adaptation)), nil
}

// score assumes factors are already finite and clamped.
func (e *Engine) score(exposure, vulnerability, adaptation float64) float64 {
	w := e.cfg.Weights
	risk := w.Exposure*exposure + w.Vulnerability*vulnerability - w.Adaptation*adaptation
	return round2(clamp(100 - risk))
}

// Categorize maps a score to its category. Scores are clamped to [0, 100]
// before lookup; the top range includes 100. Panics on NaN.
func (e *Engine) Categorize(score float64) Category {
	score = clamp(score)
	last := len(e.cfg.Thresholds) - 1
	for i, t := range e.cfg.Thresholds {
		if score >= t.Min && (score < t.Max || (i == last && score == t.Max)) {
			return t.Category
		}
	}
	// Validate guarantees contiguous coverage of [0, 100].
	panic(fmt.Sprintf("domain: score %v matched no category threshold", score))
}

// Score scores and categorizes a single region input. All factors must be present.
func (e *Engine) Score(in RegionInput) (RegionScore, error) {
	if in.Exposure == nil || in.Vulnerability == nil || in.Adaptation == nil {
		return RegionScore{}, fmt.Errorf("%w: region %q is missing exposure, vulnerability or adaptation", ErrSchema, in.RegionID)
	}
	index, err := e.ScoreOne(*in.Exposure, *in.Vulnerability, *in.Adaptation)
	if err != nil {
		return RegionScore{}, fmt.Errorf("region %q: %w", in.RegionID, err)
	}

	name := in.RegionName
	if name == "" {
		name = in.RegionID
	}
	return RegionScore{
		RegionID:        in.RegionID,
		RegionName:      name,
		Exposure:        clamp(*in.Exposure),
		Vulnerability:   clamp(*in.Vulnerability),
		Adaptation:      clamp(*in.Adaptation),
		ResilienceIndex: index,
		Category:        e.Categorize(index),
		Population:      in.Population,
	}, nil
}

// ScoreBatch scores every input into a new slice. If any record fails, no
// partial result is returned.
func (e *Engine) ScoreBatch(inputs []RegionInput) ([]RegionScore, error) {
	out := make([]RegionScore, 0, len(inputs))
	for _, in := range inputs {
		s, err := e.Score(in)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Rescore recomputes the index and category of an already-scored record from its factors.
func (e *Engine) Rescore(r RegionScore) RegionScore {
	r.Exposure = clamp(r.Exposure)
	r.Vulnerability = clamp(r.Vulnerability)
	r.Adaptation = clamp(r.Adaptation)
	r.ResilienceIndex = e.score(r.Exposure, r.Vulnerability, r.Adaptation)
	r.Category = e.Categorize(r.ResilienceIndex)
	return r
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
