package memcatalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

func loadTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Load(filepath.Join("testdata", "catalog.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return repo
}

func TestLoad_Dataset(t *testing.T) {
	repo := loadTestRepo(t)

	products, incidents := repo.Len()
	if products != 2 || incidents != 3 {
		t.Fatalf("expected 2 products and 3 incidents, got %d and %d", products, incidents)
	}

	inc, err := repo.GetIncident(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc.Scale != prism.FivePoint || inc.Scores.ContextualRelevance != 5 {
		t.Errorf("unexpected incident scores: %+v", inc.Scores)
	}
	if inc.ImpactScale == nil || *inc.ImpactScale != 4 {
		t.Errorf("unexpected impact scale %v", inc.ImpactScale)
	}

	inc, err = repo.GetIncident(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inc.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at %v", inc.CreatedAt)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseDataset_TolerantTags(t *testing.T) {
	repo := loadTestRepo(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Purposes) != 0 {
		t.Errorf("plain-string purposes must be empty, got %v", p.Purposes)
	}

	inc, _ := repo.GetIncident(ctx, 2)
	if len(inc.Technologies) != 2 {
		t.Errorf("non-string tags must be dropped, got %v", inc.Technologies)
	}
	inc, _ = repo.GetIncident(ctx, 3)
	if len(inc.Technologies) != 0 {
		t.Errorf("plain-string technologies must be empty, got %v", inc.Technologies)
	}
}

func TestParseDataset_JSON(t *testing.T) {
	ds, err := ParseDataset([]byte(`{"products":[{"id":7,"name":"x","technologies":["a"]}],"incidents":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Products) != 1 || ds.Products[0].Technologies[0] != "a" {
		t.Errorf("unexpected dataset %+v", ds)
	}
}

func TestParseDataset_Invalid(t *testing.T) {
	if _, err := ParseDataset([]byte("products: [")); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(Dataset{})
	ctx := context.Background()

	if _, err := repo.GetProduct(ctx, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := repo.GetIncident(ctx, 1); !errors.Is(err, domain.ErrIncidentNotFound) {
		t.Errorf("expected ErrIncidentNotFound, got %v", err)
	}
}

func TestListIncidents(t *testing.T) {
	repo := loadTestRepo(t)
	ctx := context.Background()

	all, err := repo.ListIncidents(ctx, incident.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{1, 2, 3} {
		if all[i].ID != want {
			t.Errorf("position %d: expected %d, got %d", i, want, all[i].ID)
		}
	}

	privacy, _ := repo.ListIncidents(ctx, incident.Filter{RiskDomain: "Privacy", Limit: 1})
	if len(privacy) != 1 || privacy[0].ID != 2 {
		t.Errorf("expected [2], got %+v", privacy)
	}
}

func TestListIncidents_CancelledContext(t *testing.T) {
	repo := loadTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.ListIncidents(ctx, incident.Filter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestImport_Replaces(t *testing.T) {
	repo := loadTestRepo(t)
	ctx := context.Background()

	if err := repo.Import(ctx, []product.Product{{ID: 1, Name: "PhotoTagger 2"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := repo.GetProduct(ctx, 1)
	if p.Name != "PhotoTagger 2" {
		t.Errorf("expected replaced product, got %q", p.Name)
	}
}
