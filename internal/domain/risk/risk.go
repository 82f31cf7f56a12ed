// Package risk combines incident scores and categorical risk levels into a single risk value.
package risk

import (
	"fmt"
	"math"
	"strings"
)

// Level is the categorical risk level of an incident.
type Level string

// Recognized levels. Anything else maps to the neutral factor.
const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// ParseLevel normalizes a free-form level string (case-insensitive, trimmed).
func ParseLevel(s string) Level {
	return Level(strings.ToLower(strings.TrimSpace(s)))
}

// Inputs holds the seven values the rich aggregator combines, on the unit scale.
type Inputs struct {
	LogicalCoherence          float64
	FactualAccuracy           float64
	PracticalImplementability float64
	ContextualRelevance       float64
	Uniqueness                float64
	ImpactScale               float64
	RiskConfidence            float64
}

// Weights sets the contribution of each input. Must sum to 1.0 (±0.001).
type Weights struct {
	LogicalCoherence          float64 `yaml:"logical_coherence"`
	FactualAccuracy           float64 `yaml:"factual_accuracy"`
	PracticalImplementability float64 `yaml:"practical_implementability"`
	ContextualRelevance       float64 `yaml:"contextual_relevance"`
	Uniqueness                float64 `yaml:"uniqueness"`
	ImpactScale               float64 `yaml:"impact_scale"`
	RiskConfidence            float64 `yaml:"risk_confidence"`
}

// DefaultWeights returns the standard risk weighting.
func DefaultWeights() Weights {
	return Weights{
		LogicalCoherence:          0.1,
		FactualAccuracy:           0.1,
		PracticalImplementability: 0.1,
		ContextualRelevance:       0.2,
		Uniqueness:                0.2,
		ImpactScale:               0.2,
		RiskConfidence:            0.1,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.LogicalCoherence + w.FactualAccuracy + w.PracticalImplementability +
		w.ContextualRelevance + w.Uniqueness + w.ImpactScale + w.RiskConfidence
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool { return w == Weights{} }

// Validate checks that weights sum to 1.0 and none are negative.
func (w Weights) Validate() error {
	for _, v := range []float64{
		w.LogicalCoherence, w.FactualAccuracy, w.PracticalImplementability,
		w.ContextualRelevance, w.Uniqueness, w.ImpactScale, w.RiskConfidence,
	} {
		if v < 0 {
			return fmt.Errorf("negative weight: %f", v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	return nil
}

// LevelFactors maps risk levels to multipliers.
type LevelFactors struct {
	Low     float64 `yaml:"low"`
	Medium  float64 `yaml:"medium"`
	High    float64 `yaml:"high"`
	Unknown float64 `yaml:"unknown"`
}

// DefaultLevelFactors returns low 0.3, medium 0.6, high 0.9, unknown 0.5.
func DefaultLevelFactors() LevelFactors {
	return LevelFactors{Low: 0.3, Medium: 0.6, High: 0.9, Unknown: 0.5}
}

// IsZero reports whether no factor is set.
func (f LevelFactors) IsZero() bool { return f == LevelFactors{} }

// Factor returns the multiplier for a level.
func (f LevelFactors) Factor(l Level) float64 {
	switch ParseLevel(string(l)) {
	case Low:
		return f.Low
	case Medium:
		return f.Medium
	case High:
		return f.High
	default:
		return f.Unknown
	}
}

// Validate checks that every factor lies in [0,1].
func (f LevelFactors) Validate() error {
	for name, v := range map[string]float64{
		"low": f.Low, "medium": f.Medium, "high": f.High, "unknown": f.Unknown,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("level factor %s must be between 0 and 1, got %f", name, v)
		}
	}
	return nil
}

// Aggregate is the rich risk formula: weighted sum of the inputs times the level factor.
func Aggregate(in Inputs, level Level, w Weights, f LevelFactors) float64 {
	sum := in.LogicalCoherence*w.LogicalCoherence +
		in.FactualAccuracy*w.FactualAccuracy +
		in.PracticalImplementability*w.PracticalImplementability +
		in.ContextualRelevance*w.ContextualRelevance +
		in.Uniqueness*w.Uniqueness +
		in.ImpactScale*w.ImpactScale +
		in.RiskConfidence*w.RiskConfidence
	return sum * f.Factor(level)
}

// DefaultLightweight is returned when impact or confidence is missing.
const DefaultLightweight = 0.5

// Lightweight is the retrieval-path formula (impact + confidence) / 2.
// impact and confidence are the stored values: a nil or zero one counts as
// missing and yields DefaultLightweight. toUnit maps the stored impact onto
// [0,1] before averaging; nil means impact is already on the unit scale.
func Lightweight(impact, confidence *float64, toUnit func(float64) float64) float64 {
	if impact == nil || confidence == nil || *impact == 0 || *confidence == 0 {
		return DefaultLightweight
	}
	im := *impact
	if toUnit != nil {
		im = toUnit(im)
	}
	return (im + *confidence) / 2
}
