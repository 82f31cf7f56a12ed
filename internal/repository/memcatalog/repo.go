// Package memcatalog serves the catalog from an in-memory dataset.
package memcatalog

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Repo is a concurrency-safe in-memory catalog.
type Repo struct {
	mu        sync.RWMutex
	products  map[int64]product.Product
	incidents map[int64]incident.Incident
}

// New creates a catalog holding the dataset. Later records win on duplicate IDs.
func New(ds Dataset) *Repo {
	r := &Repo{
		products:  make(map[int64]product.Product, len(ds.Products)),
		incidents: make(map[int64]incident.Incident, len(ds.Incidents)),
	}
	r.put(ds.Products, ds.Incidents)
	return r
}

// Load creates a catalog from a dataset file.
func Load(path string) (*Repo, error) {
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

// GetProduct returns a product by ID.
func (r *Repo) GetProduct(_ context.Context, id int64) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return product.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// GetIncident returns an incident by ID.
func (r *Repo) GetIncident(_ context.Context, id int64) (incident.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inc, ok := r.incidents[id]
	if !ok {
		return incident.Incident{}, domain.ErrIncidentNotFound
	}
	return inc, nil
}

// ListIncidents returns matching incidents ordered by ID.
func (r *Repo) ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]incident.Incident, 0, len(r.incidents))
	for _, inc := range r.incidents {
		if f.Matches(&inc) {
			out = append(out, inc)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b incident.Incident) int { return cmp.Compare(a.ID, b.ID) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Import adds or replaces records.
func (r *Repo) Import(_ context.Context, products []product.Product, incidents []incident.Incident) error {
	r.put(products, incidents)
	return nil
}

// Ping always succeeds.
func (r *Repo) Ping(context.Context) error { return nil }

// Len returns the number of products and incidents held.
func (r *Repo) Len() (products, incidents int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), len(r.incidents)
}

func (r *Repo) put(products []product.Product, incidents []incident.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.ID] = p
	}
	for _, inc := range incidents {
		r.incidents[inc.ID] = inc
	}
}
