// Package ranking holds the value types of incident retrieval.
package ranking

import (
	"fmt"

	"github.com/kailas-cloud/incidex/internal/domain"
)

// Ranking parameter limits.
const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// SortKey names the score a ranking is ordered by.
type SortKey string

// Sort key constants.
const (
	SortSimilarity SortKey = "similarity"
	SortRisk       SortKey = "risk"
	SortRelevance  SortKey = "relevance"
)

// IsValid checks if the key is one of the supported values.
func (k SortKey) IsValid() bool {
	return k == SortSimilarity || k == SortRisk || k == SortRelevance
}

// Request is a validated ranking query.
type Request struct {
	limit         int
	sortBy        SortKey
	riskDomain    string
	minSimilarity float64
	minRisk       float64
}

// NewRequest validates ranking parameters.
// Defaults: limit=5, sort_by=similarity. A zero limit means the default.
func NewRequest(limit int, sortBy SortKey, riskDomain string, minSimilarity, minRisk float64) (Request, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return Request{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, MaxLimit)
	}
	if sortBy == "" {
		sortBy = SortSimilarity
	}
	if !sortBy.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid sort_by %q", domain.ErrInvalidRequest, sortBy)
	}
	if !inUnit(minSimilarity) {
		return Request{}, fmt.Errorf("%w: min_similarity must be between 0 and 1", domain.ErrInvalidRequest)
	}
	if !inUnit(minRisk) {
		return Request{}, fmt.Errorf("%w: min_risk must be between 0 and 1", domain.ErrInvalidRequest)
	}
	return Request{
		limit:         limit,
		sortBy:        sortBy,
		riskDomain:    riskDomain,
		minSimilarity: minSimilarity,
		minRisk:       minRisk,
	}, nil
}

// DefaultRequest returns limit=5 sorted by similarity with no filters.
func DefaultRequest() Request {
	return Request{limit: DefaultLimit, sortBy: SortSimilarity}
}

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// SortBy returns the primary sort key.
func (r *Request) SortBy() SortKey { return r.sortBy }

// RiskDomain returns the exact-match domain filter. Empty means no filter.
func (r *Request) RiskDomain() string { return r.riskDomain }

// MinSimilarity returns the similarity threshold.
func (r *Request) MinSimilarity() float64 { return r.minSimilarity }

// MinRisk returns the risk threshold.
func (r *Request) MinRisk() float64 { return r.minRisk }

// inUnit also rejects NaN.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
