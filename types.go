package incidex

import "time"

// SortKey selects the score a ranking is ordered by.
type SortKey string

// Sort key constants.
const (
	SortSimilarity SortKey = "similarity"
	SortRisk       SortKey = "risk"
	SortRelevance  SortKey = "relevance"
)

// Mode selects how the oracle is asked to score.
type Mode string

// Scoring mode constants.
const (
	ModePrism   Mode = "prism"
	ModeGeneric Mode = "generic"
)

// Scale is the numeric range of assessment scores.
type Scale string

// Scale constants. Scoring accepts five_point and percent.
const (
	ScaleFivePoint Scale = "five_point"
	ScalePercent   Scale = "percent"
)

// ExplainMode selects the depth of an explanation.
type ExplainMode string

// Explanation mode constants.
const (
	ExplainNone      ExplainMode = "none"
	ExplainGeneric   ExplainMode = "generic"
	ExplainFullPrism ExplainMode = "full_prism"
)

// Status tells a genuine assessment apart from a substituted one.
type Status string

// Assessment status constants.
const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFallback Status = "fallback"
)

// RankOptions filters and orders a ranking. Zero values mean the defaults:
// limit 5, sorted by similarity, no filters.
type RankOptions struct {
	Limit         int
	SortBy        SortKey
	RiskDomain    string
	MinSimilarity float64
	MinRisk       float64
}

// RankedIncident is one entry of a ranking.
type RankedIncident struct {
	ID             int64
	Title          string
	Description    string
	Technologies   []string
	RiskLevel      string
	RiskDomain     string
	Similarity     float64
	TextSimilarity float64
	TagSimilarity  float64
	Risk           float64
	// Relevance is Similarity × Risk.
	Relevance float64
}

// ScoreOptions controls scoring. Zero values mean prism mode on the five-point scale.
type ScoreOptions struct {
	Mode  Mode
	Scale Scale
}

// ScorePair names one product and incident for Engine.ScoreBatch.
type ScorePair struct {
	ProductID  int64
	IncidentID int64
}

// Assessment is the scored transferability of one incident for one product.
type Assessment struct {
	ID              string
	IncidentID      int64
	ProductID       int64
	Mode            Mode
	Scale           Scale
	Status          Status
	Scores          map[string]float64 // dimension → score on Scale
	Transferability float64
	Rationale       string
	Rationales      map[string]string
	IncidentRisk    float64
	ScoredAt        time.Time
}

// IsFallback reports whether the oracle failed and the scores are midpoints.
func (a *Assessment) IsFallback() bool { return a.Status == StatusFallback }

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
