package chi

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
	domusage "github.com/kailas-cloud/incidex/internal/domain/usage"
	bulkuc "github.com/kailas-cloud/incidex/internal/usecase/bulk"
	explainuc "github.com/kailas-cloud/incidex/internal/usecase/explain"
	healthuc "github.com/kailas-cloud/incidex/internal/usecase/health"
)

// Catalog resolves the records of the single scoring route.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
}

// Ranker ranks catalog incidents against a product.
type Ranker interface {
	Rank(ctx context.Context, productID int64, req domrank.Request) ([]domrank.Result, error)
}

// Scorer scores one (incident, product) pair.
type Scorer interface {
	Score(ctx context.Context, inc *incident.Incident, p *product.Product, opts domprism.Options) domprism.Assessment
}

// BulkScorer scores many incidents for one product, or many independent pairs.
type BulkScorer interface {
	ScoreIDs(ctx context.Context, productID int64, incidentIDs []int64, opts domprism.Options) ([]domprism.Assessment, error)
	ScorePairs(ctx context.Context, pairs []bulkuc.Pair, opts domprism.Options) ([]domprism.Assessment, error)
	Top(ctx context.Context, productID int64, limit int, opts domprism.Options) ([]domprism.Assessment, error)
}

// Explainer produces free-text explanations.
type Explainer interface {
	ExplainIDs(ctx context.Context, productID, incidentID int64, mode explainuc.Mode) (string, error)
}

// UsageReporter reports oracle token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
