package prism

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/incidex/internal/domain"
)

// Mode selects how the oracle is asked to score.
type Mode string

// Scoring modes.
const (
	// ModePrism decomposes the judgment into six dimensions.
	ModePrism Mode = "prism"
	// ModeGeneric asks for one holistic confidence value.
	ModeGeneric Mode = "generic"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == ModePrism || m == ModeGeneric
}

// Status tells a genuine score apart from a substituted one.
type Status string

// Assessment statuses.
const (
	// StatusOK means every dimension came from the oracle.
	StatusOK Status = "ok"
	// StatusDegraded means some dimensions were missing or out of range and were replaced by the midpoint.
	StatusDegraded Status = "degraded"
	// StatusFallback means the oracle failed and the whole vector is the midpoint.
	StatusFallback Status = "fallback"
)

// ErrorMarker prefixes the rationale of every fallback assessment.
const ErrorMarker = "Error in calculation"

// GenericPrefix prefixes the rationale of generic-mode assessments.
const GenericPrefix = "Generic Analysis: "

// Options controls one scoring call.
type Options struct {
	mode  Mode
	scale Scale
}

// NewOptions validates scoring options. Defaults: mode=prism, scale=five_point.
// Only five_point and percent are accepted as oracle scales.
func NewOptions(m Mode, s Scale) (Options, error) {
	if m == "" {
		m = ModePrism
	}
	if !m.IsValid() {
		return Options{}, fmt.Errorf("%w: unknown scoring mode %q", domain.ErrInvalidRequest, m)
	}
	if s == "" {
		s = FivePoint
	}
	if s != FivePoint && s != Percent {
		return Options{}, fmt.Errorf("%w: scale must be %q or %q, got %q", domain.ErrInvalidRequest, FivePoint, Percent, s)
	}
	return Options{mode: m, scale: s}, nil
}

// DefaultOptions returns prism mode on the five-point scale.
func DefaultOptions() Options {
	return Options{mode: ModePrism, scale: FivePoint}
}

// Mode returns the scoring mode.
func (o Options) Mode() Mode { return o.mode }

// Scale returns the requested oracle scale.
func (o Options) Scale() Scale { return o.scale }

// Assessment is the scored transferability of one incident for one product.
type Assessment struct {
	ID              uuid.UUID
	IncidentID      int64
	ProductID       int64
	Mode            Mode
	Vector          Vector
	Transferability float64
	Rationale       string
	Rationales      map[Dimension]string
	Status          Status
	// IncidentRisk is the weighted risk over the incident's stored scores, on the unit scale.
	IncidentRisk float64
	ScoredAt     time.Time
}

// IsFallback reports whether the assessment is a substituted midpoint result.
func (a *Assessment) IsFallback() bool { return a.Status == StatusFallback }

// Fallback builds the midpoint assessment for a failed scoring call.
func Fallback(incidentID, productID int64, opts Options, cause string) Assessment {
	v := Neutral(opts.Scale())
	rationale := ErrorMarker
	if cause != "" {
		rationale += ": " + cause
	}
	return Assessment{
		ID:              uuid.New(),
		IncidentID:      incidentID,
		ProductID:       productID,
		Mode:            opts.Mode(),
		Vector:          v,
		Transferability: opts.Scale().Neutral(),
		Rationale:       rationale,
		Status:          StatusFallback,
		ScoredAt:        time.Now().UTC(),
	}
}
