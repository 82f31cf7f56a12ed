// Package bulk schedules PRISM scoring over many incidents with bounded concurrency.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// DefaultConcurrency is the number of oracle calls in flight per bulk request.
const DefaultConcurrency = 4

// MaxTopLimit caps the number of incidents scored by Top.
const MaxTopLimit = 100

// MaxBatchSize caps the number of pairs in one ScorePairs call.
const MaxBatchSize = 100

// Fallback causes for pairs the catalog could not supply.
const (
	CauseIncidentNotFound = "incident not found"
	CauseProductNotFound  = "product not found"
)

// Pair is one independent (product, incident) scoring request.
type Pair struct {
	ProductID  int64
	IncidentID int64
}

// Service fans scoring out over a bounded errgroup.
type Service struct {
	scorer      Scorer
	catalog     Catalog
	concurrency int
	logger      *zap.Logger
}

// New creates a bulk scheduler. concurrency <= 0 means DefaultConcurrency.
func New(scorer Scorer, catalog Catalog, concurrency int, logger *zap.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{scorer: scorer, catalog: catalog, concurrency: concurrency, logger: logger}
}

// Score returns one assessment per incident, in input order.
// A failing item never cancels its siblings.
func (s *Service) Score(ctx context.Context, incidents []incident.Incident, p *product.Product, opts domprism.Options) []domprism.Assessment {
	out := make([]domprism.Assessment, len(incidents))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i := range incidents {
		inc := &incidents[i]
		g.Go(func() error {
			out[i] = s.scorer.Score(ctx, inc, p, opts)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// ScoreIDs resolves the product and incidents from the catalog and scores them.
// Only a missing product or a catalog failure on it is returned as an error.
func (s *Service) ScoreIDs(ctx context.Context, productID int64, incidentIDs []int64, opts domprism.Options) ([]domprism.Assessment, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	incidents := make([]incident.Incident, len(incidentIDs))
	missing := make([]bool, len(incidentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range incidentIDs {
		g.Go(func() error {
			inc, err := s.catalog.GetIncident(gctx, id)
			switch {
			case err == nil:
				incidents[i] = inc
			case errors.Is(err, domain.ErrNotFound):
				missing[i] = true
			default:
				return fmt.Errorf("get incident %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Score only what was found, then splice fallbacks back into position.
	found := make([]incident.Incident, 0, len(incidentIDs))
	for i := range incidents {
		if !missing[i] {
			found = append(found, incidents[i])
		}
	}
	scored := s.Score(ctx, found, &p, opts)

	out := make([]domprism.Assessment, len(incidentIDs))
	next := 0
	for i, id := range incidentIDs {
		if missing[i] {
			out[i] = s.scorer.Unresolved(ctx, id, p.ID, opts, CauseIncidentNotFound)
			continue
		}
		out[i] = scored[next]
		next++
	}
	return out, nil
}

// ScorePairs scores independent (product, incident) pairs, one assessment per
// pair in input order. Unknown products or incidents yield fallback entries;
// only catalog failures are returned as errors.
func (s *Service) ScorePairs(ctx context.Context, pairs []Pair, opts domprism.Options) ([]domprism.Assessment, error) {
	if len(pairs) == 0 || len(pairs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: pair count must be between 1 and %d", domain.ErrInvalidRequest, MaxBatchSize)
	}

	out := make([]domprism.Assessment, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pr := range pairs {
		g.Go(func() error {
			a, err := s.scorePair(gctx, pr, opts)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) scorePair(ctx context.Context, pr Pair, opts domprism.Options) (domprism.Assessment, error) {
	p, err := s.catalog.GetProduct(ctx, pr.ProductID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.scorer.Unresolved(ctx, pr.IncidentID, pr.ProductID, opts, CauseProductNotFound), nil
	case err != nil:
		return domprism.Assessment{}, fmt.Errorf("get product %d: %w", pr.ProductID, err)
	}
	inc, err := s.catalog.GetIncident(ctx, pr.IncidentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.scorer.Unresolved(ctx, pr.IncidentID, pr.ProductID, opts, CauseIncidentNotFound), nil
	case err != nil:
		return domprism.Assessment{}, fmt.Errorf("get incident %d: %w", pr.IncidentID, err)
	}
	return s.scorer.Score(ctx, &inc, &p, opts), nil
}

// Top scores the first limit catalog incidents and orders them by transferability.
func (s *Service) Top(ctx context.Context, productID int64, limit int, opts domprism.Options) ([]domprism.Assessment, error) {
	if limit <= 0 || limit > MaxTopLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, MaxTopLimit)
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	incidents, err := s.catalog.ListIncidents(ctx, incident.Filter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	out := s.Score(ctx, incidents, &p, opts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Transferability != out[j].Transferability {
			return out[i].Transferability > out[j].Transferability
		}
		return out[i].IncidentID < out[j].IncidentID
	})

	s.logger.Debug("Scored top incidents",
		zap.Int64("product_id", productID),
		zap.Int("scored", len(out)),
	)
	return out, nil
}
