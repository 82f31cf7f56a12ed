package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
	domusage "github.com/kailas-cloud/incidex/internal/domain/usage"
	logpkg "github.com/kailas-cloud/incidex/internal/logger"
	bulkuc "github.com/kailas-cloud/incidex/internal/usecase/bulk"
	explainuc "github.com/kailas-cloud/incidex/internal/usecase/explain"
	healthuc "github.com/kailas-cloud/incidex/internal/usecase/health"
)

const maxBulkSize = 100

// defaultTopLimit applies when GET .../prism/top has no limit.
const defaultTopLimit = 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers of the engine API.
type Server struct {
	catalog           Catalog
	ranker            Ranker
	scorer            Scorer
	bulk              BulkScorer
	explainer         Explainer
	usage             UsageReporter
	health            HealthChecker
	logger            *zap.Logger
	errorHandlers     []errorHandler
	paramErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog Catalog,
	ranker Ranker,
	scorer Scorer,
	bulk BulkScorer,
	explainer Explainer,
	usage UsageReporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:   catalog,
		ranker:    ranker,
		scorer:    scorer,
		bulk:      bulk,
		explainer: explainer,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, ErrorResponseCodeProductNotFound),
		sentinelHandler(domain.ErrIncidentNotFound, http.StatusNotFound, ErrorResponseCodeIncidentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrOracleQuotaExceeded, http.StatusPaymentRequired, ErrorResponseCodeOracleQuota),
		sentinelHandler(domain.ErrOracleUnavailable, http.StatusBadGateway, ErrorResponseCodeOracleUnavailable),
	}
	s.paramErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, paramErrorMessage(err))
	}
	return s
}

// RankIncidents handles GET /products/{product_id}/incidents.
func (s *Server) RankIncidents(w http.ResponseWriter, r *http.Request) {
	productID, err := bindPathID(r, "product_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.Int64("product_id", productID)))
	params, err := bindRankParams(r)
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	if params.Limit != nil && *params.Limit <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "limit must be positive")
		return
	}

	req, err := domrank.NewRequest(
		derefInt(params.Limit),
		domrank.SortKey(derefString(params.SortBy)),
		derefString(params.RiskDomain),
		derefFloat(params.MinSimilarity),
		derefFloat(params.MinRisk),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	results, err := s.ranker.Rank(r.Context(), productID, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]RankedIncident, len(results))
	for i := range results {
		items[i] = rankedToAPI(&results[i])
	}

	writeJSON(w, http.StatusOK, RankResponse{
		ProductID: productID,
		SortBy:    string(req.SortBy()),
		Items:     items,
		Total:     len(items),
	})
}

// ScoreIncident handles POST /products/{product_id}/incidents/{incident_id}/prism.
func (s *Server) ScoreIncident(w http.ResponseWriter, r *http.Request) {
	productID, err := bindPathID(r, "product_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.Int64("product_id", productID)))
	incidentID, err := bindPathID(r, "incident_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	params, err := bindScoreParams(r)
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	opts, err := optionsFromParams(params.Mode, params.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	p, err := s.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	inc, err := s.catalog.GetIncident(r.Context(), incidentID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	a := s.scorer.Score(ctx, &inc, &p, opts)

	setOracleHeaders(w, usage)
	writeJSON(w, http.StatusOK, assessmentToAPI(&a))
}

// ScoreBulk handles POST /products/{product_id}/prism/bulk.
func (s *Server) ScoreBulk(w http.ResponseWriter, r *http.Request) {
	productID, err := bindPathID(r, "product_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.Int64("product_id", productID)))

	var req BulkScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.IncidentIDs) == 0 || len(req.IncidentIDs) > maxBulkSize {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("incident_ids count must be between 1 and %d", maxBulkSize))
		return
	}
	opts, err := optionsFromParams(&req.Mode, &req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.bulk.ScoreIDs(ctx, productID, req.IncidentIDs, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setOracleHeaders(w, usage)
	writeJSON(w, http.StatusOK, assessmentList(productID, results))
}

// ScoreBatch handles POST /prism/batch.
func (s *Server) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Pairs) == 0 || len(req.Pairs) > maxBulkSize {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("pairs count must be between 1 and %d", maxBulkSize))
		return
	}
	opts, err := optionsFromParams(&req.Mode, &req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	pairs := make([]bulkuc.Pair, len(req.Pairs))
	for i, p := range req.Pairs {
		pairs[i] = bulkuc.Pair{ProductID: p.ProductID, IncidentID: p.IncidentID}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.bulk.ScorePairs(ctx, pairs, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	list := assessmentList(0, results)
	setOracleHeaders(w, usage)
	writeJSON(w, http.StatusOK, BatchScoreResponse{
		Items:     list.Items,
		Succeeded: list.Succeeded,
		Fallback:  list.Fallback,
	})
}

// TopTransferability handles GET /products/{product_id}/prism/top.
func (s *Server) TopTransferability(w http.ResponseWriter, r *http.Request) {
	productID, err := bindPathID(r, "product_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.Int64("product_id", productID)))
	params, err := bindTopParams(r)
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	limit := defaultTopLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	opts, err := optionsFromParams(params.Mode, params.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.bulk.Top(ctx, productID, limit, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setOracleHeaders(w, usage)
	writeJSON(w, http.StatusOK, assessmentList(productID, results))
}

// ExplainIncident handles GET /products/{product_id}/incidents/{incident_id}/explanation.
func (s *Server) ExplainIncident(w http.ResponseWriter, r *http.Request) {
	productID, err := bindPathID(r, "product_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.Int64("product_id", productID)))
	incidentID, err := bindPathID(r, "incident_id")
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	params, err := bindExplainParams(r)
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	mode, err := explainuc.ParseMode(derefString(params.Mode))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	text, err := s.explainer.ExplainIDs(ctx, productID, incidentID, mode)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setOracleHeaders(w, usage)
	writeJSON(w, http.StatusOK, ExplanationResponse{
		ProductID:   productID,
		IncidentID:  incidentID,
		Mode:        string(mode),
		Explanation: text,
	})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	params, err := bindUsageParams(r)
	if err != nil {
		s.paramErrorHandler(w, r, err)
		return
	}
	period := domusage.PeriodMonth
	if params.Period != nil {
		period = domusage.Period(*params.Period)
		if !period.IsValid() {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
				"period must be one of day, month, total")
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)

	b := report.Budget()
	resp := UsageResponse{
		Period: string(report.Period()),
		Model:  report.Model(),
		Usage: UsageMetrics{
			OracleRequests: report.Metrics().OracleRequests(),
			CacheHits:      report.Metrics().CacheHits(),
			Tokens:         report.Metrics().Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if b.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Degraded still serves rankings.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func optionsFromParams(mode, scale *string) (domprism.Options, error) {
	opts, err := domprism.NewOptions(domprism.Mode(derefString(mode)), domprism.Scale(derefString(scale)))
	if err != nil {
		return domprism.Options{}, fmt.Errorf("scoring options: %w", err)
	}
	return opts, nil
}

func setOracleHeaders(w http.ResponseWriter, usage *domain.OracleUsage) {
	if usage.Used() {
		w.Header().Set("X-Oracle-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// paramErrorMessage names the offending parameter without echoing parser internals.
func paramErrorMessage(err error) string {
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		return "invalid parameter " + pe.ParamName
	}
	return "invalid request"
}

// validationMessage drops everything up to the sentinel text, e.g. "scoring options: invalid request: x" becomes "x".
func validationMessage(err error) string {
	msg := err.Error()
	marker := domain.ErrInvalidRequest.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProductNotFound,
		domain.ErrIncidentNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidRequest,
		domain.ErrRateLimited,
		domain.ErrOracleQuotaExceeded,
		domain.ErrOracleUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(logpkg.WithDefault(r.Context(), s.logger))
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func rankedToAPI(r *domrank.Result) RankedIncident {
	inc := r.Incident()
	techs := inc.Technologies
	if techs == nil {
		techs = []string{}
	}
	return RankedIncident{
		ID:             inc.ID,
		Title:          inc.Title,
		Description:    inc.Description,
		Technologies:   techs,
		RiskLevel:      inc.RiskLevel,
		RiskDomain:     inc.RiskDomain,
		Similarity:     r.Similarity(),
		TextSimilarity: r.TextSimilarity(),
		TagSimilarity:  r.TagSimilarity(),
		Risk:           r.Risk(),
		Relevance:      r.Relevance(),
	}
}

func assessmentToAPI(a *domprism.Assessment) Assessment {
	scores := make(map[string]float64, len(domprism.Dimensions))
	for _, d := range domprism.Dimensions {
		scores[string(d)] = a.Vector.Get(d)
	}
	var rationales map[string]string
	if len(a.Rationales) > 0 {
		rationales = make(map[string]string, len(a.Rationales))
		for d, text := range a.Rationales {
			rationales[string(d)] = text
		}
	}
	return Assessment{
		ID:              a.ID.String(),
		IncidentID:      a.IncidentID,
		ProductID:       a.ProductID,
		Mode:            string(a.Mode),
		Scale:           string(a.Vector.Scale),
		Status:          string(a.Status),
		Scores:          scores,
		Transferability: a.Transferability,
		Rationale:       a.Rationale,
		Rationales:      rationales,
		IncidentRisk:    a.IncidentRisk,
		ScoredAt:        a.ScoredAt,
	}
}

func assessmentList(productID int64, results []domprism.Assessment) AssessmentListResponse {
	resp := AssessmentListResponse{
		ProductID: productID,
		Items:     make([]Assessment, len(results)),
	}
	for i := range results {
		resp.Items[i] = assessmentToAPI(&results[i])
		if results[i].IsFallback() {
			resp.Fallback++
		} else {
			resp.Succeeded++
		}
	}
	return resp
}
