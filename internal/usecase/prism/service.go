// Package prism scores the transferability of an incident to a product through the scoring oracle.
package prism

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	"github.com/kailas-cloud/incidex/internal/domain/risk"
	"github.com/kailas-cloud/incidex/internal/logger"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// Fallback causes surfaced in assessment rationales. Internal error text is only logged.
const (
	CauseRateLimited   = "rate limited"
	CauseQuotaExceeded = "quota exceeded"
	CauseTimeout       = "timeout"
	CauseCancelled     = "cancelled"
	CauseUnavailable   = "oracle unavailable"
	CauseMalformed     = "malformed oracle reply"

	CauseInvalidRecord = "invalid record"
)

// Service is the PRISM scorer. Safe for concurrent use.
type Service struct {
	oracle       Oracle
	weights      domprism.Weights
	riskWeights  risk.Weights
	levelFactors risk.LevelFactors
	publisher    Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a scorer. Zero weights fall back to the defaults.
func New(oracle Oracle, weights domprism.Weights, logger *zap.Logger) *Service {
	if weights.IsZero() {
		weights = domprism.DefaultWeights()
	}
	return &Service{
		oracle:       oracle,
		weights:      weights,
		riskWeights:  risk.DefaultWeights(),
		levelFactors: risk.DefaultLevelFactors(),
		logger:       logger,
		now:          time.Now,
	}
}

// WithRisk overrides the weights used for Assessment.IncidentRisk.
func (s *Service) WithRisk(w risk.Weights, f risk.LevelFactors) *Service {
	if !w.IsZero() {
		s.riskWeights = w
	}
	if !f.IsZero() {
		s.levelFactors = f
	}
	return s
}

// WithPublisher enables scoring events.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

// Score asks the oracle for a transferability judgment. It never fails:
// unscorable records, oracle errors and unparsable replies yield a midpoint
// fallback assessment.
func (s *Service) Score(ctx context.Context, inc *incident.Incident, p *product.Product, opts domprism.Options) domprism.Assessment {
	return s.finish(ctx, s.score(ctx, inc, p, opts), inc)
}

// Unresolved returns the fallback for a pair the catalog could not supply.
// It is counted and published like any scored pair.
func (s *Service) Unresolved(ctx context.Context, incidentID, productID int64, opts domprism.Options, cause string) domprism.Assessment {
	a := domprism.Fallback(incidentID, productID, opts, cause)
	a.ScoredAt = s.now().UTC()
	return s.finish(ctx, a, &incident.Incident{ID: incidentID})
}

func (s *Service) finish(ctx context.Context, a domprism.Assessment, inc *incident.Incident) domprism.Assessment {
	a.IncidentRisk = s.incidentRisk(inc)

	metrics.ScoringTotal.WithLabelValues(string(a.Mode), string(a.Status)).Inc()
	s.publish(ctx, a)

	s.log(ctx).Debug("Scored incident",
		zap.Int64("incident_id", a.IncidentID),
		zap.Int64("product_id", a.ProductID),
		zap.String("mode", string(a.Mode)),
		zap.String("status", string(a.Status)),
		zap.Float64("transferability", a.Transferability),
	)
	return a
}

func (s *Service) score(ctx context.Context, inc *incident.Incident, p *product.Product, opts domprism.Options) domprism.Assessment {
	log := s.log(ctx)

	if err := ctx.Err(); err != nil {
		return s.fallback(inc, p, opts, causeOf(err))
	}
	if err := inc.ValidateForScoring(); err != nil {
		log.Warn("Incident cannot be scored, using fallback", zap.Int64("incident_id", inc.ID), zap.Error(err))
		return s.fallback(inc, p, opts, CauseInvalidRecord)
	}

	c, err := s.oracle.Complete(ctx, buildPrompt(inc, p, opts))
	if err != nil {
		log.Warn("Oracle call failed, using fallback",
			zap.Int64("incident_id", inc.ID),
			zap.Int64("product_id", p.ID),
			zap.Error(err),
		)
		return s.fallback(inc, p, opts, causeOf(err))
	}

	a := domprism.Assessment{
		ID:         uuid.New(),
		IncidentID: inc.ID,
		ProductID:  p.ID,
		Mode:       opts.Mode(),
		Status:     domprism.StatusOK,
		ScoredAt:   s.now().UTC(),
	}

	if opts.Mode() == domprism.ModeGeneric {
		value, reasoning, inRange, err := parseGeneric(c.Text, opts.Scale())
		if err != nil {
			log.Warn("Unparsable generic reply", zap.Int64("incident_id", inc.ID), zap.Error(err))
			return s.fallback(inc, p, opts, CauseMalformed)
		}
		if !inRange {
			a.Status = domprism.StatusDegraded
		}
		a.Vector = domprism.Uniform(opts.Scale(), value)
		a.Transferability = value
		a.Rationale = domprism.GenericPrefix + reasoning
		return a
	}

	r, err := parsePrism(c.Text, opts.Scale())
	if err != nil {
		log.Warn("Unparsable PRISM reply", zap.Int64("incident_id", inc.ID), zap.Error(err))
		return s.fallback(inc, p, opts, CauseMalformed)
	}
	if len(r.substituted) > 0 {
		a.Status = domprism.StatusDegraded
		dims := make([]string, len(r.substituted))
		for i, d := range r.substituted {
			dims[i] = string(d)
		}
		log.Warn("PRISM reply incomplete, substituted midpoint",
			zap.Int64("incident_id", inc.ID),
			zap.Strings("dimensions", dims),
		)
	}
	a.Vector = r.vector
	a.Rationales = r.rationales
	a.Transferability = domprism.Aggregate(r.vector, s.weights)
	a.Rationale = domprism.Explain(r.vector, r.rationales)
	return a
}

// log prefers the request logger.
func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(logger.WithDefault(ctx, s.logger))
}

func (s *Service) fallback(inc *incident.Incident, p *product.Product, opts domprism.Options, cause string) domprism.Assessment {
	a := domprism.Fallback(inc.ID, p.ID, opts, cause)
	a.ScoredAt = s.now().UTC()
	return a
}

// incidentRisk runs the rich risk formula over the incident's stored scores.
func (s *Service) incidentRisk(inc *incident.Incident) float64 {
	u := inc.UnitScores()
	var confidence float64
	if inc.ConfidenceScore != nil {
		confidence = *inc.ConfidenceScore
	}
	in := risk.Inputs{
		LogicalCoherence:          u.LogicalCoherence,
		FactualAccuracy:           u.FactualAccuracy,
		PracticalImplementability: u.PracticalImplementability,
		ContextualRelevance:       u.ContextualRelevance,
		Uniqueness:                u.Uniqueness,
		ImpactScale:               u.ImpactScale,
		RiskConfidence:            confidence,
	}
	return risk.Aggregate(in, inc.Level(), s.riskWeights, s.levelFactors)
}

func (s *Service) publish(ctx context.Context, a domprism.Assessment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAssessment(ctx, a); err != nil {
		s.logger.Warn("Failed to publish scoring event",
			zap.String("assessment_id", a.ID.String()),
			zap.Error(err),
		)
	}
}

// causeOf classifies an oracle error into a stable, non-leaking cause.
func causeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return CauseRateLimited
	case errors.Is(err, domain.ErrOracleQuotaExceeded):
		return CauseQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, context.Canceled):
		return CauseCancelled
	case errors.Is(err, domain.ErrMalformedReply):
		return CauseMalformed
	default:
		return CauseUnavailable
	}
}
