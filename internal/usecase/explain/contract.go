package explain

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Oracle answers the explanation prompt.
type Oracle interface {
	Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error)
}

// Catalog resolves the pair being explained.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
}
