package prism

import (
	"fmt"
	"math"
)

// Weights defines the contribution of each dimension to the transferability score.
// All weights must sum to 1.0 (±0.001 tolerance).
type Weights struct {
	LogicalCoherence          float64 `yaml:"logical_coherence"`
	FactualAccuracy           float64 `yaml:"factual_accuracy"`
	PracticalImplementability float64 `yaml:"practical_implementability"`
	ContextualRelevance       float64 `yaml:"contextual_relevance"`
	Impact                    float64 `yaml:"impact"`
	Exploitability            float64 `yaml:"exploitability"`
}

// DefaultWeights returns the standard transferability weighting.
func DefaultWeights() Weights {
	return Weights{
		LogicalCoherence:          0.15,
		FactualAccuracy:           0.15,
		PracticalImplementability: 0.15,
		ContextualRelevance:       0.25,
		Impact:                    0.25,
		Exploitability:            0.05,
	}
}

// Table returns the weights keyed by dimension.
func (w Weights) Table() map[Dimension]float64 {
	return map[Dimension]float64{
		LogicalCoherence:          w.LogicalCoherence,
		FactualAccuracy:           w.FactualAccuracy,
		PracticalImplementability: w.PracticalImplementability,
		ContextualRelevance:       w.ContextualRelevance,
		Impact:                    w.Impact,
		Exploitability:            w.Exploitability,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	t := w.Table()
	var s float64
	for _, d := range Dimensions {
		s += t[d]
	}
	return s
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w Weights) Validate() error {
	for d, v := range w.Table() {
		if v < 0 {
			return fmt.Errorf("negative weight for %s: %f", d, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	return nil
}

// Aggregate combines a vector into a single transferability score on the vector's own scale.
func Aggregate(v Vector, w Weights) float64 {
	t := w.Table()
	var total float64
	for _, d := range Dimensions {
		total += v.Get(d) * t[d]
	}
	return total
}
