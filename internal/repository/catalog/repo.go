// Package catalog reads products and incidents stored as JSON documents in Redis/Valkey.
package catalog

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/db"
	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// DefaultPageSize is the SCAN batch used when listing incidents.
const DefaultPageSize = 200

// store is the consumer interface for catalog documents (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	ScanPage(ctx context.Context, pattern string, cursor uint64, count int64) ([]string, uint64, error)
}

// Repo implements the usecase catalog contracts on Redis/Valkey JSON.
type Repo struct {
	store    store
	pageSize int
	logger   *zap.Logger
}

// New creates a catalog repository. pageSize <= 0 uses DefaultPageSize.
func New(s store, pageSize int, logger *zap.Logger) *Repo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Repo{store: s, pageSize: pageSize, logger: logger}
}

// GetProduct returns a product by ID.
func (r *Repo) GetProduct(ctx context.Context, id int64) (product.Product, error) {
	key := productKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return product.Product{}, domain.ErrProductNotFound
		}
		return product.Product{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := firstOf[productDoc](raw)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return product.Product{}, domain.ErrProductNotFound
		}
		return product.Product{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc.toDomain(), nil
}

// GetIncident returns an incident by ID.
func (r *Repo) GetIncident(ctx context.Context, id int64) (incident.Incident, error) {
	key := incidentKey(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return incident.Incident{}, domain.ErrIncidentNotFound
		}
		return incident.Incident{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := firstOf[incidentDoc](raw)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return incident.Incident{}, domain.ErrIncidentNotFound
		}
		return incident.Incident{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc.toDomain(), nil
}

// ListIncidents walks the incident keyspace page by page and returns
// matching incidents ordered by ID. Undecodable documents are logged and skipped.
func (r *Repo) ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error) {
	var out []incident.Incident
	var cursor uint64
	pattern := domain.KeyPrefix + "incident:*"

	for {
		keys, next, err := r.store.ScanPage(ctx, pattern, cursor, int64(r.pageSize))
		if err != nil {
			return nil, fmt.Errorf("scan incidents: %w", err)
		}
		if len(keys) > 0 {
			page, err := r.loadIncidents(ctx, keys, f)
			if err != nil {
				return nil, err
			}
			out = append(out, page...)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN order is arbitrary and may repeat keys.
	slices.SortFunc(out, func(a, b incident.Incident) int { return cmp.Compare(a.ID, b.ID) })
	out = slices.CompactFunc(out, func(a, b incident.Incident) bool { return a.ID == b.ID })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Repo) loadIncidents(ctx context.Context, keys []string, f incident.Filter) ([]incident.Incident, error) {
	raws, err := r.store.JSONMGet(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.mget incidents: %w", err)
	}

	out := make([]incident.Incident, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue // deleted between SCAN and MGET
		}
		doc, err := firstOf[incidentDoc](raw)
		if err != nil {
			r.logger.Warn("Skipping undecodable incident", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		inc := doc.toDomain()
		if f.Matches(&inc) {
			out = append(out, inc)
		}
	}
	return out, nil
}

// Import writes products and incidents as JSON documents, overwriting existing keys.
func (r *Repo) Import(ctx context.Context, products []product.Product, incidents []incident.Incident) error {
	items := make([]db.JSONSetItem, 0, len(products)+len(incidents))
	for i := range products {
		data, err := json.Marshal(productToDoc(&products[i]))
		if err != nil {
			return fmt.Errorf("marshal product %d: %w", products[i].ID, err)
		}
		items = append(items, db.JSONSetItem{Key: productKey(products[i].ID), Path: "$", Data: data})
	}
	for i := range incidents {
		data, err := json.Marshal(incidentToDoc(&incidents[i]))
		if err != nil {
			return fmt.Errorf("marshal incident %d: %w", incidents[i].ID, err)
		}
		items = append(items, db.JSONSetItem{Key: incidentKey(incidents[i].ID), Path: "$", Data: data})
	}

	for start := 0; start < len(items); start += r.pageSize {
		end := min(start+r.pageSize, len(items))
		if err := r.store.JSONSetMulti(ctx, items[start:end]); err != nil {
			return fmt.Errorf("import batch at %d: %w", start, err)
		}
	}
	return nil
}

func productKey(id int64) string {
	return fmt.Sprintf("%sproduct:%d", domain.KeyPrefix, id)
}

func incidentKey(id int64) string {
	return fmt.Sprintf("%sincident:%d", domain.KeyPrefix, id)
}
