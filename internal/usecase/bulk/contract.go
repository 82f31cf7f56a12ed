package bulk

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Scorer produces one assessment per (incident, product) pair. Must never fail.
type Scorer interface {
	Score(ctx context.Context, inc *incident.Incident, p *product.Product, opts domprism.Options) domprism.Assessment
	// Unresolved finishes a fallback for a pair whose records could not be loaded.
	Unresolved(ctx context.Context, incidentID, productID int64, opts domprism.Options, cause string) domprism.Assessment
}

// Catalog resolves products and incidents by id.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
	ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error)
}
