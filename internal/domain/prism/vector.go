package prism

import "fmt"

// Dimension names one axis of the scorer vector.
type Dimension string

// Scorer dimensions, in canonical order.
const (
	LogicalCoherence          Dimension = "logical_coherence"
	FactualAccuracy           Dimension = "factual_accuracy"
	PracticalImplementability Dimension = "practical_implementability"
	ContextualRelevance       Dimension = "contextual_relevance"
	Impact                    Dimension = "impact"
	Exploitability            Dimension = "exploitability"
)

// Dimensions lists all scorer dimensions in canonical order.
var Dimensions = []Dimension{
	LogicalCoherence,
	FactualAccuracy,
	PracticalImplementability,
	ContextualRelevance,
	Impact,
	Exploitability,
}

var dimensionTitles = map[Dimension]string{
	LogicalCoherence:          "Logical Coherence",
	FactualAccuracy:           "Factual Accuracy",
	PracticalImplementability: "Practical Implementability",
	ContextualRelevance:       "Contextual Relevance",
	Impact:                    "Impact",
	Exploitability:            "Exploitability",
}

// Title returns the human readable dimension name.
func (d Dimension) Title() string {
	if t, ok := dimensionTitles[d]; ok {
		return t
	}
	return string(d)
}

// Vector is the six-dimension scorer form. All values share Scale.
type Vector struct {
	Scale                     Scale   `json:"scale"`
	LogicalCoherence          float64 `json:"logical_coherence"`
	FactualAccuracy           float64 `json:"factual_accuracy"`
	PracticalImplementability float64 `json:"practical_implementability"`
	ContextualRelevance       float64 `json:"contextual_relevance"`
	Impact                    float64 `json:"impact"`
	Exploitability            float64 `json:"exploitability"`
}

// Uniform returns a vector with every dimension set to v.
func Uniform(scale Scale, v float64) Vector {
	out := Vector{Scale: scale}
	for _, d := range Dimensions {
		out.Set(d, v)
	}
	return out
}

// Neutral returns the all-midpoint vector for the scale.
func Neutral(scale Scale) Vector {
	return Uniform(scale, scale.Neutral())
}

// Get returns the value of dimension d.
func (v Vector) Get(d Dimension) float64 {
	switch d {
	case LogicalCoherence:
		return v.LogicalCoherence
	case FactualAccuracy:
		return v.FactualAccuracy
	case PracticalImplementability:
		return v.PracticalImplementability
	case ContextualRelevance:
		return v.ContextualRelevance
	case Impact:
		return v.Impact
	case Exploitability:
		return v.Exploitability
	default:
		return 0
	}
}

// Set assigns dimension d.
func (v *Vector) Set(d Dimension, val float64) {
	switch d {
	case LogicalCoherence:
		v.LogicalCoherence = val
	case FactualAccuracy:
		v.FactualAccuracy = val
	case PracticalImplementability:
		v.PracticalImplementability = val
	case ContextualRelevance:
		v.ContextualRelevance = val
	case Impact:
		v.Impact = val
	case Exploitability:
		v.Exploitability = val
	}
}

// Convert returns the vector expressed on another scale.
func (v Vector) Convert(to Scale) Vector {
	if v.Scale == to {
		return v
	}
	out := Vector{Scale: to}
	for _, d := range Dimensions {
		out.Set(d, v.Scale.Convert(v.Get(d), to))
	}
	return out
}

// Validate checks that the scale is known and every value lies inside it.
func (v Vector) Validate() error {
	if !v.Scale.IsValid() {
		return fmt.Errorf("unknown scale %q", v.Scale)
	}
	for _, d := range Dimensions {
		if !v.Scale.Contains(v.Get(d)) {
			return fmt.Errorf("%s=%v outside %s scale", d, v.Get(d), v.Scale)
		}
	}
	return nil
}

// LegacyVector is the stored retrieval form: four shared dimensions plus uniqueness and impact scale.
type LegacyVector struct {
	Scale                     Scale   `json:"scale" yaml:"scale"`
	LogicalCoherence          float64 `json:"logical_coherence" yaml:"logical_coherence"`
	FactualAccuracy           float64 `json:"factual_accuracy" yaml:"factual_accuracy"`
	PracticalImplementability float64 `json:"practical_implementability" yaml:"practical_implementability"`
	ContextualRelevance       float64 `json:"contextual_relevance" yaml:"contextual_relevance"`
	Uniqueness                float64 `json:"uniqueness" yaml:"uniqueness"`
	ImpactScale               float64 `json:"impact_scale" yaml:"impact_scale"`
}

// ToUnit returns the vector normalized onto the 0-1 scale.
func (l LegacyVector) ToUnit() LegacyVector {
	s := l.Scale
	if !s.IsValid() {
		s = Unit
	}
	return LegacyVector{
		Scale:                     Unit,
		LogicalCoherence:          s.ToUnit(l.LogicalCoherence),
		FactualAccuracy:           s.ToUnit(l.FactualAccuracy),
		PracticalImplementability: s.ToUnit(l.PracticalImplementability),
		ContextualRelevance:       s.ToUnit(l.ContextualRelevance),
		Uniqueness:                s.ToUnit(l.Uniqueness),
		ImpactScale:               s.ToUnit(l.ImpactScale),
	}
}

// IsZero reports whether no dimension carries a value.
func (l LegacyVector) IsZero() bool {
	return l.LogicalCoherence == 0 && l.FactualAccuracy == 0 &&
		l.PracticalImplementability == 0 && l.ContextualRelevance == 0 &&
		l.Uniqueness == 0 && l.ImpactScale == 0
}
