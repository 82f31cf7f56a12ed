package ranking

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
	"github.com/kailas-cloud/incidex/internal/logger"
)

// Config holds the similarity blend and fan-out settings.
type Config struct {
	TextWeight float64
	TagWeight  float64
	// ParallelThreshold is the candidate count above which scoring fans out.
	ParallelThreshold int
	Workers           int
}

// DefaultConfig returns the 0.4 text / 0.6 tag blend.
func DefaultConfig() Config {
	return Config{
		TextWeight:        0.4,
		TagWeight:         0.6,
		ParallelThreshold: 256,
		Workers:           runtime.GOMAXPROCS(0),
	}
}

// Service ranks catalog incidents against a product.
type Service struct {
	catalog Catalog
	cfg     Config
	logger  *zap.Logger
}

// New creates a ranking service.
func New(catalog Catalog, cfg Config, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, cfg: cfg, logger: logger}
}

// Rank loads the product and its candidate incidents and returns the ranked list.
// Only catalog failures are returned; malformed incidents are skipped.
func (s *Service) Rank(ctx context.Context, productID int64, req domrank.Request) ([]domrank.Result, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	candidates, err := s.catalog.ListIncidents(ctx, incident.Filter{RiskDomain: req.RiskDomain()})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	results := Rank(logger.WithDefault(ctx, s.logger), p, candidates, req, s.cfg)

	s.logger.Debug("Ranked incidents",
		zap.Int64("product_id", productID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.String("sort_by", string(req.SortBy())),
	)
	return results, nil
}
