package ranking

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Catalog provides read access to products and candidate incidents.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error)
}
