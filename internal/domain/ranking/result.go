package ranking

import "github.com/kailas-cloud/incidex/internal/domain/incident"

// Result is one ranked incident. Created per call, never persisted.
type Result struct {
	incident       incident.Incident
	textSimilarity float64
	tagSimilarity  float64
	similarity     float64
	risk           float64
	relevance      float64
}

// NewResult creates a ranked incident. Relevance is similarity × risk.
func NewResult(inc incident.Incident, textSim, tagSim, similarity, risk float64) Result {
	return Result{
		incident:       inc,
		textSimilarity: textSim,
		tagSimilarity:  tagSim,
		similarity:     similarity,
		risk:           risk,
		relevance:      similarity * risk,
	}
}

// Incident returns the ranked incident.
func (r *Result) Incident() incident.Incident { return r.incident }

// TextSimilarity returns the lexical component of similarity.
func (r *Result) TextSimilarity() float64 { return r.textSimilarity }

// TagSimilarity returns the technology overlap component of similarity.
func (r *Result) TagSimilarity() float64 { return r.tagSimilarity }

// Similarity returns the blended similarity score.
func (r *Result) Similarity() float64 { return r.similarity }

// Risk returns the lightweight risk score.
func (r *Result) Risk() float64 { return r.risk }

// Relevance returns similarity × risk.
func (r *Result) Relevance() float64 { return r.relevance }

// Score returns the value of the given sort key.
func (r *Result) Score(k SortKey) float64 {
	switch k {
	case SortRisk:
		return r.risk
	case SortRelevance:
		return r.relevance
	default:
		return r.similarity
	}
}
