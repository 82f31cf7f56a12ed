// Package explain generates free-text explanations of why an incident matters for a product.
package explain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	"github.com/kailas-cloud/incidex/internal/logger"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// Mode selects the depth of an explanation.
type Mode string

// Explanation modes.
const (
	ModeNone      Mode = "none"
	ModeGeneric   Mode = "generic"
	ModeFullPrism Mode = "full_prism"
)

// ParseMode validates a mode name. Empty means generic.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	switch m {
	case "":
		return ModeGeneric, nil
	case ModeNone, ModeGeneric, ModeFullPrism:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown explanation mode %q", domain.ErrInvalidRequest, s)
	}
}

// FallbackText replaces a failed or empty explanation.
const FallbackText = "Error generating explanation"

const (
	explainTemperature = 0.3
	explainMaxTokens   = 500
)

const systemPrompt = "You are an expert at explaining AI incident transferability. " +
	"For a given product and incident, explain why the incident is relevant and what lessons can be learned."

// Service generates explanations. Safe for concurrent use.
type Service struct {
	oracle  Oracle
	catalog Catalog
	logger  *zap.Logger
}

// New creates an explanation service. catalog is only needed by ExplainIDs.
func New(oracle Oracle, catalog Catalog, logger *zap.Logger) *Service {
	return &Service{oracle: oracle, catalog: catalog, logger: logger}
}

// Explain returns the explanation text. It never fails: oracle errors
// and empty replies yield FallbackText. ModeNone skips the oracle.
func (s *Service) Explain(ctx context.Context, p *product.Product, inc *incident.Incident, mode Mode) string {
	if mode == ModeNone {
		return ""
	}

	c, err := s.oracle.Complete(ctx, buildPrompt(p, inc, mode))
	text := strings.TrimSpace(c.Text)
	if err != nil || text == "" {
		logger.FromContext(logger.WithDefault(ctx, s.logger)).Warn("Explanation failed, using fallback",
			zap.Int64("product_id", p.ID),
			zap.Int64("incident_id", inc.ID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		metrics.ExplanationsTotal.WithLabelValues(string(mode), "fallback").Inc()
		return FallbackText
	}

	metrics.ExplanationsTotal.WithLabelValues(string(mode), "ok").Inc()
	return text
}

// ExplainIDs resolves both records from the catalog. Not-found errors are returned.
func (s *Service) ExplainIDs(ctx context.Context, productID, incidentID int64, mode Mode) (string, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return "", fmt.Errorf("get product: %w", err)
	}
	inc, err := s.catalog.GetIncident(ctx, incidentID)
	if err != nil {
		return "", fmt.Errorf("get incident: %w", err)
	}
	return s.Explain(ctx, &p, &inc, mode), nil
}

func buildPrompt(p *product.Product, inc *incident.Incident, mode Mode) domain.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", p.Name)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Technologies: %s\n\n", strings.Join(p.Technologies, ", "))

	fmt.Fprintf(&b, "Incident: %s\n", inc.Title)
	fmt.Fprintf(&b, "Description: %s\n", inc.Description)
	fmt.Fprintf(&b, "Technologies: %s\n", strings.Join(inc.Technologies, ", "))

	if mode == ModeFullPrism {
		u := inc.UnitScores()
		b.WriteString("\nStored PRISM scores (0-1):\n")
		fmt.Fprintf(&b, "- Logical Coherence: %.2f\n", u.LogicalCoherence)
		fmt.Fprintf(&b, "- Factual Accuracy: %.2f\n", u.FactualAccuracy)
		fmt.Fprintf(&b, "- Practical Implementability: %.2f\n", u.PracticalImplementability)
		fmt.Fprintf(&b, "- Contextual Relevance: %.2f\n", u.ContextualRelevance)
		fmt.Fprintf(&b, "- Uniqueness: %.2f\n", u.Uniqueness)
		fmt.Fprintf(&b, "- Impact Scale: %.2f\n", u.ImpactScale)
		fmt.Fprintf(&b, "Risk level: %s\n", inc.RiskLevel)
		fmt.Fprintf(&b, "Risk domain: %s\n", inc.RiskDomain)
		b.WriteString("\nProvide a detailed explanation using the PRISM framework.")
	} else {
		b.WriteString("\nProvide a brief explanation of the key similarities.")
	}

	return domain.Prompt{
		System:      systemPrompt,
		User:        b.String(),
		Temperature: explainTemperature,
		MaxTokens:   explainMaxTokens,
	}
}
