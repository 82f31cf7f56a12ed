package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/incidex/internal/db"
	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// --- GetProduct ---

func TestGetProduct_Success(t *testing.T) {
	repo, ms := newTestRepo(t, 0)

	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "incidex:product:7" {
			t.Errorf("unexpected key: %s", key)
		}
		return []byte(`[{"id":7,"name":"PhotoTagger","technologies":["computer vision"],"purposes":"tagging"}]`), nil
	}

	p, err := repo.GetProduct(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "PhotoTagger" {
		t.Errorf("unexpected name %q", p.Name)
	}
	if len(p.Technologies) != 1 || p.Technologies[0] != "computer vision" {
		t.Errorf("unexpected technologies %v", p.Technologies)
	}
	if p.Purposes == nil || len(p.Purposes) != 0 {
		t.Errorf("plain-string purposes must decode to an empty list, got %#v", p.Purposes)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t, 0)

	_, err := repo.GetProduct(context.Background(), 1)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestGetProduct_EmptyArray(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(`[]`), nil
	}

	_, err := repo.GetProduct(context.Background(), 1)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestGetProduct_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpJSONGet, Err: context.DeadlineExceeded}
	}

	_, err := repo.GetProduct(context.Background(), 1)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

// --- GetIncident ---

func TestGetIncident_Success(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "incidex:incident:3" {
			t.Errorf("unexpected key: %s", key)
		}
		return []byte(`[{"id":3,"title":"Bias","technologies":null,"risk_level":"High",` +
			`"impact_scale":4,"scale":"five_point","scores":{"logical_coherence":4}}]`), nil
	}

	inc, err := repo.GetIncident(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc.Title != "Bias" || inc.RiskLevel != "High" {
		t.Errorf("unexpected incident %+v", inc)
	}
	if len(inc.Technologies) != 0 {
		t.Errorf("null technologies must decode to empty, got %v", inc.Technologies)
	}
	if inc.ImpactScale == nil || *inc.ImpactScale != 4 {
		t.Errorf("unexpected impact %v", inc.ImpactScale)
	}
	if inc.Scores.LogicalCoherence != 4 {
		t.Errorf("unexpected scores %+v", inc.Scores)
	}
}

func TestGetIncident_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t, 0)

	_, err := repo.GetIncident(context.Background(), 99)
	if !errors.Is(err, domain.ErrIncidentNotFound) {
		t.Fatalf("expected ErrIncidentNotFound, got %v", err)
	}
}

// --- ListIncidents ---

func incidentJSON(id int64, domainName string) []byte {
	return []byte(fmt.Sprintf(`[{"id":%d,"title":"t%d","risk_domain":%q}]`, id, id, domainName))
}

func TestListIncidents_PagesAndSorts(t *testing.T) {
	repo, ms := newTestRepo(t, 2)

	pages := map[uint64]struct {
		keys []string
		next uint64
	}{
		0:  {[]string{"incidex:incident:3", "incidex:incident:1"}, 17},
		17: {[]string{"incidex:incident:2", "incidex:incident:1"}, 0},
	}
	var scans int
	ms.scanPageFn = func(_ context.Context, pattern string, cursor uint64, count int64) ([]string, uint64, error) {
		scans++
		if pattern != "incidex:incident:*" {
			t.Errorf("unexpected pattern %q", pattern)
		}
		if count != 2 {
			t.Errorf("expected page size 2, got %d", count)
		}
		p := pages[cursor]
		return p.keys, p.next, nil
	}
	ms.jsonMGetFn = func(_ context.Context, keys []string, _ string) ([][]byte, error) {
		out := make([][]byte, len(keys))
		for i, k := range keys {
			var id int64
			_, _ = fmt.Sscanf(k, "incidex:incident:%d", &id)
			out[i] = incidentJSON(id, "Privacy")
		}
		return out, nil
	}

	got, err := repo.ListIncidents(context.Background(), incident.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scans != 2 {
		t.Errorf("expected 2 scan pages, got %d", scans)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique incidents, got %d", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, got[i].ID)
		}
	}
}

func TestListIncidents_FilterAndLimit(t *testing.T) {
	repo, ms := newTestRepo(t, 0)

	ms.scanPageFn = func(_ context.Context, _ string, _ uint64, _ int64) ([]string, uint64, error) {
		return []string{"a", "b", "c", "d"}, 0, nil
	}
	ms.jsonMGetFn = func(_ context.Context, _ []string, _ string) ([][]byte, error) {
		return [][]byte{
			incidentJSON(4, "Privacy"),
			incidentJSON(1, "Safety"),
			incidentJSON(2, "Privacy"),
			nil,
		}, nil
	}

	got, err := repo.ListIncidents(context.Background(), incident.Filter{RiskDomain: "Privacy", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected [2], got %+v", got)
	}
}

func TestListIncidents_SkipsCorruptDocuments(t *testing.T) {
	repo, ms := newTestRepo(t, 0)

	ms.scanPageFn = func(_ context.Context, _ string, _ uint64, _ int64) ([]string, uint64, error) {
		return []string{"a", "b"}, 0, nil
	}
	ms.jsonMGetFn = func(_ context.Context, _ []string, _ string) ([][]byte, error) {
		return [][]byte{[]byte(`{not json`), incidentJSON(5, "")}, nil
	}

	got, err := repo.ListIncidents(context.Background(), incident.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 5 {
		t.Fatalf("expected only incident 5, got %+v", got)
	}
}

func TestListIncidents_ScanError(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	ms.scanPageFn = func(_ context.Context, _ string, _ uint64, _ int64) ([]string, uint64, error) {
		return nil, 0, errors.New("LOADING")
	}

	if _, err := repo.ListIncidents(context.Background(), incident.Filter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestListIncidents_Empty(t *testing.T) {
	repo, _ := newTestRepo(t, 0)

	got, err := repo.ListIncidents(context.Background(), incident.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

// --- Import ---

func TestImport_BatchesAndKeys(t *testing.T) {
	repo, ms := newTestRepo(t, 2)

	var batches [][]db.JSONSetItem
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) error {
		batches = append(batches, items)
		return nil
	}

	products := []product.Product{{ID: 1, Name: "PhotoTagger"}}
	incidents := []incident.Incident{{ID: 10, Title: "a"}, {ID: 11, Title: "b"}}
	if err := repo.Import(context.Background(), products, incidents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0][0].Key != "incidex:product:1" || batches[0][1].Key != "incidex:incident:10" {
		t.Errorf("unexpected keys in first batch: %s, %s", batches[0][0].Key, batches[0][1].Key)
	}

	var doc map[string]any
	if err := json.Unmarshal(batches[0][0].Data, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if techs, ok := doc["technologies"].([]any); !ok || len(techs) != 0 {
		t.Errorf("nil technologies must be stored as [], got %v", doc["technologies"])
	}
}
