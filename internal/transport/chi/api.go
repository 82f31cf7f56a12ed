package chi

import "time"

// ErrorResponseCode is a stable machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest        ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed  ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized      ErrorResponseCode = "unauthorized"
	ErrorResponseCodeProductNotFound   ErrorResponseCode = "product_not_found"
	ErrorResponseCodeIncidentNotFound  ErrorResponseCode = "incident_not_found"
	ErrorResponseCodeNotFound          ErrorResponseCode = "not_found"
	ErrorResponseCodeRateLimited       ErrorResponseCode = "rate_limited"
	ErrorResponseCodeOracleQuota       ErrorResponseCode = "oracle_quota_exceeded"
	ErrorResponseCodeOracleUnavailable ErrorResponseCode = "oracle_unavailable"
	ErrorResponseCodeInternalError     ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// RankedIncident is one entry of a ranking.
type RankedIncident struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Technologies   []string `json:"technologies"`
	RiskLevel      string   `json:"risk_level"`
	RiskDomain     string   `json:"risk_domain"`
	Similarity     float64  `json:"similarity"`
	TextSimilarity float64  `json:"text_similarity"`
	TagSimilarity  float64  `json:"tag_similarity"`
	Risk           float64  `json:"risk"`
	Relevance      float64  `json:"relevance"`
}

// RankResponse is the body of GET /products/{product_id}/incidents.
type RankResponse struct {
	ProductID int64            `json:"product_id"`
	SortBy    string           `json:"sort_by"`
	Items     []RankedIncident `json:"items"`
	Total     int              `json:"total"`
}

// Assessment is a scored (incident, product) pair.
type Assessment struct {
	ID              string             `json:"id"`
	IncidentID      int64              `json:"incident_id"`
	ProductID       int64              `json:"product_id"`
	Mode            string             `json:"mode"`
	Scale           string             `json:"scale"`
	Status          string             `json:"status"`
	Scores          map[string]float64 `json:"scores"`
	Transferability float64            `json:"transferability"`
	Rationale       string             `json:"rationale"`
	Rationales      map[string]string  `json:"rationales,omitempty"`
	IncidentRisk    float64            `json:"incident_risk"`
	ScoredAt        time.Time          `json:"scored_at"`
}

// BulkScoreRequest is the body of POST /products/{product_id}/prism/bulk.
type BulkScoreRequest struct {
	IncidentIDs []int64 `json:"incident_ids"`
	Mode        string  `json:"mode,omitempty"`
	Scale       string  `json:"scale,omitempty"`
}

// ScorePair names one product and incident to score together.
type ScorePair struct {
	ProductID  int64 `json:"product_id"`
	IncidentID int64 `json:"incident_id"`
}

// BatchScoreRequest is the body of POST /prism/batch.
type BatchScoreRequest struct {
	Pairs []ScorePair `json:"pairs"`
	Mode  string      `json:"mode,omitempty"`
	Scale string      `json:"scale,omitempty"`
}

// BatchScoreResponse lists one assessment per requested pair, in request order.
type BatchScoreResponse struct {
	Items     []Assessment `json:"items"`
	Succeeded int          `json:"succeeded"`
	Fallback  int          `json:"fallback"`
}

// AssessmentListResponse wraps bulk and top results.
type AssessmentListResponse struct {
	ProductID int64        `json:"product_id"`
	Items     []Assessment `json:"items"`
	Succeeded int          `json:"succeeded"`
	Fallback  int          `json:"fallback"`
}

// ExplanationResponse is the body of GET .../explanation.
type ExplanationResponse struct {
	ProductID   int64  `json:"product_id"`
	IncidentID  int64  `json:"incident_id"`
	Mode        string `json:"mode"`
	Explanation string `json:"explanation"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Model         string       `json:"model,omitempty"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics are oracle call counters.
type UsageMetrics struct {
	OracleRequests int `json:"oracle_requests"`
	CacheHits      int `json:"cache_hits"`
	Tokens         int `json:"tokens"`
}

// BudgetStatus is the token budget of the period. A limit of 0 means unlimited.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}
