package prism

import (
	"fmt"
	"math"
)

// Scale is the declared numeric range of a score vector.
// Values on different scales are never compared directly; conversion goes through ToUnit/FromUnit.
type Scale string

// Supported scales.
const (
	// FivePoint is the 1-5 rating scale, neutral 3.
	FivePoint Scale = "five_point"
	// Unit is the normalized 0-1 scale, neutral 0.5.
	Unit Scale = "unit"
	// Percent is the 1-100 scale used by bulk scoring, neutral 50.
	Percent Scale = "percent"
)

// ParseScale resolves a scale name. Empty input yields def.
func ParseScale(s string, def Scale) (Scale, error) {
	if s == "" {
		return def, nil
	}
	sc := Scale(s)
	if !sc.IsValid() {
		return "", fmt.Errorf("unknown scale %q", s)
	}
	return sc, nil
}

// IsValid checks if the scale is one of the supported values.
func (s Scale) IsValid() bool {
	return s == FivePoint || s == Unit || s == Percent
}

// Bounds returns the inclusive range of the scale.
func (s Scale) Bounds() (lo, hi float64) {
	switch s {
	case FivePoint:
		return 1, 5
	case Percent:
		return 1, 100
	default:
		return 0, 1
	}
}

// Neutral returns the midpoint used for missing or failed values.
func (s Scale) Neutral() float64 {
	switch s {
	case FivePoint:
		return 3
	case Percent:
		return 50
	default:
		return 0.5
	}
}

// Contains reports whether v is a finite value inside the scale bounds.
func (s Scale) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	lo, hi := s.Bounds()
	return v >= lo && v <= hi
}

// ToUnit maps v onto [0,1]. Out-of-range input is clamped, NaN maps to 0.5.
func (s Scale) ToUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	lo, hi := s.Bounds()
	return clamp01((v - lo) / (hi - lo))
}

// FromUnit maps u in [0,1] back onto the scale.
func (s Scale) FromUnit(u float64) float64 {
	if math.IsNaN(u) {
		return s.Neutral()
	}
	lo, hi := s.Bounds()
	return lo + clamp01(u)*(hi-lo)
}

// Convert moves v from scale s onto scale to.
func (s Scale) Convert(v float64, to Scale) float64 {
	if s == to {
		return v
	}
	return to.FromUnit(s.ToUnit(v))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
