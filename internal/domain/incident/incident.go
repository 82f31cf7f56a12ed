package incident

import (
	"strings"
	"time"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/risk"
)

// Incident is a recorded AI-related harm event. Read-only.
type Incident struct {
	ID           int64    `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	// RiskLevel is low/medium/high, case-insensitive.
	RiskLevel string `json:"risk_level" yaml:"risk_level"`
	// RiskDomain is compared case-sensitively by filters.
	RiskDomain      string             `json:"risk_domain" yaml:"risk_domain"`
	ImpactScale     *float64           `json:"impact_scale,omitempty" yaml:"impact_scale"`
	ConfidenceScore *float64           `json:"confidence_score,omitempty" yaml:"confidence_score"`
	Scores          prism.LegacyVector `json:"scores" yaml:"scores"`
	// Scale is the declared scale of Scores and ImpactScale. Empty means unit.
	Scale     prism.Scale `json:"scale,omitempty" yaml:"scale"`
	CreatedAt time.Time   `json:"created_at,omitzero" yaml:"created_at"`
	UpdatedAt time.Time   `json:"updated_at,omitzero" yaml:"updated_at"`
}

// Text returns the blob compared against product text.
func (i *Incident) Text() string {
	return strings.TrimSpace(i.Title + " " + i.Description)
}

// Level returns the parsed risk level.
func (i *Incident) Level() risk.Level {
	return risk.ParseLevel(i.RiskLevel)
}

// DeclaredScale returns Scale, defaulting to unit.
func (i *Incident) DeclaredScale() prism.Scale {
	if i.Scale.IsValid() {
		return i.Scale
	}
	return prism.Unit
}

// UnitImpact returns ImpactScale normalized to [0,1], or nil when missing.
func (i *Incident) UnitImpact() *float64 {
	if i.ImpactScale == nil {
		return nil
	}
	v := i.DeclaredScale().ToUnit(*i.ImpactScale)
	return &v
}

// LightweightRisk is the retrieval risk (impact + confidence) / 2. Missing and
// zero values are judged on the stored numbers, before impact is normalized.
func (i *Incident) LightweightRisk() float64 {
	return risk.Lightweight(i.ImpactScale, i.ConfidenceScore, i.DeclaredScale().ToUnit)
}

// UnitScores returns the stored vector on the unit scale.
func (i *Incident) UnitScores() prism.LegacyVector {
	s := i.Scores
	if !s.Scale.IsValid() {
		s.Scale = i.DeclaredScale()
	}
	return s.ToUnit()
}

// Validate rejects records the ranker cannot evaluate.
func (i *Incident) Validate() error {
	if i.ID <= 0 {
		return domain.NewRecordError("incident", i.ID, "id must be positive")
	}
	if i.Scale != "" && !i.Scale.IsValid() {
		return domain.NewRecordError("incident", i.ID, "unknown scale "+string(i.Scale))
	}
	return nil
}

// ValidateForScoring additionally requires some text to put in front of the oracle.
func (i *Incident) ValidateForScoring() error {
	if err := i.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Title) == "" && strings.TrimSpace(i.Description) == "" {
		return domain.NewRecordError("incident", i.ID, "title and description are empty")
	}
	return nil
}

// Filter narrows a catalog listing.
type Filter struct {
	// RiskDomain is an exact-match pushdown. Empty means any domain.
	RiskDomain string
	// Limit caps the number of incidents returned, lowest IDs first. 0 means all.
	Limit int
}

// Matches reports whether the incident passes the filter's predicates (not the limit).
func (f Filter) Matches(i *Incident) bool {
	return f.RiskDomain == "" || i.RiskDomain == f.RiskDomain
}
