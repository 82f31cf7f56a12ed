package sqlcatalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

func ptr(v float64) *float64 { return &v }

func openTestRepo(t *testing.T, pageSize int) *Repo {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	repo, err := Open(ctx, SQLite, path, pageSize, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func seed(t *testing.T, repo *Repo) {
	t.Helper()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	products := []product.Product{{
		ID:           1,
		Name:         "PhotoTagger",
		Description:  "tags photos using computer vision",
		Technologies: []string{"computer vision"},
		Purposes:     []string{"tagging"},
	}}
	incidents := []incident.Incident{
		{ID: 3, Title: "Chatbot leak", RiskDomain: "Privacy", RiskLevel: "high"},
		{
			ID: 1, Title: "Face recognition bias", Description: "misidentifies people",
			Technologies: []string{"computer vision"}, RiskLevel: "High", RiskDomain: "Ethics",
			ImpactScale: ptr(4), ConfidenceScore: ptr(0.8), Scale: prism.FivePoint,
			Scores:    prism.LegacyVector{LogicalCoherence: 4, Uniqueness: 2},
			CreatedAt: created,
		},
		{ID: 2, Title: "Location exposure", RiskDomain: "Privacy"},
		{ID: 5, Title: "Voice clone fraud", RiskDomain: "Security"},
	}
	require.NoError(t, repo.Import(context.Background(), products, incidents))
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "x", 0, zap.NewNop())
	require.Error(t, err)
}

func TestDialect_Placeholders(t *testing.T) {
	assert.Equal(t, "?", SQLite.ph(3))
	assert.Equal(t, "$3", Postgres.ph(3))
}

func TestUpsert_Statement(t *testing.T) {
	r := &Repo{dialect: Postgres}
	q := r.upsert("products", "id, name")
	assert.Equal(t,
		"INSERT INTO products (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = excluded.name", q)
}

func TestGetProduct_RoundTrip(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)

	p, err := repo.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "PhotoTagger", p.Name)
	assert.Equal(t, []string{"computer vision"}, p.Technologies)
	assert.Equal(t, []string{"tagging"}, p.Purposes)
	assert.Empty(t, p.EthicalIssues)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := openTestRepo(t, 0)

	_, err := repo.GetProduct(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetIncident_RoundTrip(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)

	inc, err := repo.GetIncident(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Face recognition bias", inc.Title)
	assert.Equal(t, prism.FivePoint, inc.Scale)
	require.NotNil(t, inc.ImpactScale)
	assert.InDelta(t, 4.0, *inc.ImpactScale, 1e-9)
	require.NotNil(t, inc.ConfidenceScore)
	assert.InDelta(t, 0.8, *inc.ConfidenceScore, 1e-9)
	assert.InDelta(t, 4.0, inc.Scores.LogicalCoherence, 1e-9)
	assert.True(t, inc.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, inc.UpdatedAt.IsZero())
}

func TestGetIncident_NullColumns(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)

	inc, err := repo.GetIncident(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, inc.ImpactScale)
	assert.Nil(t, inc.ConfidenceScore)
	assert.Equal(t, prism.Unit, inc.Scale)
	assert.Empty(t, inc.Technologies)
}

func TestGetIncident_NotFound(t *testing.T) {
	repo := openTestRepo(t, 0)

	_, err := repo.GetIncident(context.Background(), 9)
	require.ErrorIs(t, err, domain.ErrIncidentNotFound)
}

func TestGetIncident_MalformedColumns(t *testing.T) {
	repo := openTestRepo(t, 0)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO incidents (id, title, technologies, prism_scores) VALUES (7, 'legacy', 'computer vision', '{broken')`)
	require.NoError(t, err)

	inc, err := repo.GetIncident(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{}, inc.Technologies)
	assert.True(t, inc.Scores.IsZero())
	assert.Equal(t, LegacyScale, inc.Scale)
}

func TestListIncidents_MalformedNumberKeepsBatch(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO incidents (id, title, impact_scale, confidence_score) VALUES (9, 'bad row', 'n/a', '0.5')`)
	require.NoError(t, err)

	got, err := repo.ListIncidents(ctx, incident.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 5)

	bad := got[4]
	assert.Equal(t, int64(9), bad.ID)
	assert.Nil(t, bad.ImpactScale)
	require.NotNil(t, bad.ConfidenceScore)
	assert.InDelta(t, 0.5, *bad.ConfidenceScore, 1e-9)
}

// legacySchema mirrors catalogs created before the scale and ethical_issues columns.
var legacySchema = []string{
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY, name VARCHAR, description VARCHAR, technology VARCHAR,
		purpose VARCHAR, image_urls VARCHAR, product_url VARCHAR, pricing_model VARCHAR,
		user_count VARCHAR, created_at VARCHAR, updated_at VARCHAR
	)`,
	`CREATE TABLE incidents (
		id INTEGER PRIMARY KEY, title VARCHAR, description TEXT, technologies TEXT,
		risk_level VARCHAR, risk_domain VARCHAR, impact_scale FLOAT, confidence_score FLOAT,
		prism_scores TEXT, created_at DATETIME, updated_at DATETIME
	)`,
	`INSERT INTO products (id, name, technology, purpose) VALUES (1, 'PhotoTagger', '["computer vision"]', '["tagging"]')`,
	`INSERT INTO incidents (id, title, technologies, impact_scale, confidence_score, prism_scores, created_at)
		VALUES (1, 'Face recognition bias', '["computer vision"]', 4, 0.8, '{"logical_coherence": 5}', '2024-03-01 12:00:00.000000')`,
	`INSERT INTO incidents (id, title) VALUES (2, NULL)`,
	`INSERT INTO incidents (id, title) VALUES (3, 'Chatbot leak')`,
}

func openLegacyRepo(t *testing.T, pageSize int) *Repo {
	t.Helper()
	ctx := context.Background()
	repo, err := Open(ctx, SQLite, filepath.Join(t.TempDir(), "legacy.db"), pageSize, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	for _, stmt := range legacySchema {
		_, err := repo.db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return repo
}

func TestLegacySchema_Reads(t *testing.T) {
	repo := openLegacyRepo(t, 1)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"computer vision"}, p.Technologies)
	assert.Empty(t, p.EthicalIssues)

	inc, err := repo.GetIncident(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, prism.FivePoint, inc.Scale)
	assert.InDelta(t, 5.0, inc.Scores.LogicalCoherence, 1e-9)
	assert.True(t, inc.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), "created_at = %v", inc.CreatedAt)
	require.NotNil(t, inc.UnitImpact())
	assert.InDelta(t, 0.75, *inc.UnitImpact(), 1e-9)
}

func TestLegacySchema_SkipsUnreadableRows(t *testing.T) {
	// Page size 1 puts the unreadable row alone on a page.
	repo := openLegacyRepo(t, 1)

	got, err := repo.ListIncidents(context.Background(), incident.Filter{})
	require.NoError(t, err)

	ids := make([]int64, 0, len(got))
	for _, inc := range got {
		ids = append(ids, inc.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestEnsureSchema_AddsMissingColumns(t *testing.T) {
	repo := openLegacyRepo(t, 0)
	ctx := context.Background()

	// Resolve the select lists before migrating.
	_, err := repo.GetIncident(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	cols, err := repo.tableColumns(ctx, "incidents")
	require.NoError(t, err)
	assert.True(t, cols["scale"])
	cols, err = repo.tableColumns(ctx, "products")
	require.NoError(t, err)
	assert.True(t, cols["ethical_issues"])

	require.NoError(t, repo.Import(ctx,
		[]product.Product{{ID: 1, Name: "PhotoTagger", EthicalIssues: []string{"privacy"}}},
		[]incident.Incident{{ID: 4, Title: "Voice clone fraud", ImpactScale: ptr(0.9)}}))

	p, err := repo.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"privacy"}, p.EthicalIssues)

	inc, err := repo.GetIncident(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, prism.Unit, inc.Scale)

	inc, err = repo.GetIncident(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, prism.FivePoint, inc.Scale)
}

func TestListIncidents_PagesInIDOrder(t *testing.T) {
	repo := openTestRepo(t, 2)
	seed(t, repo)

	got, err := repo.ListIncidents(context.Background(), incident.Filter{})
	require.NoError(t, err)

	ids := make([]int64, 0, len(got))
	for _, inc := range got {
		ids = append(ids, inc.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 5}, ids)
}

func TestListIncidents_FilterAndLimit(t *testing.T) {
	repo := openTestRepo(t, 1)
	seed(t, repo)

	got, err := repo.ListIncidents(context.Background(), incident.Filter{RiskDomain: "Privacy"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got, err = repo.ListIncidents(context.Background(), incident.Filter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListIncidents_DomainIsCaseSensitive(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)

	got, err := repo.ListIncidents(context.Background(), incident.Filter{RiskDomain: "privacy"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImport_Overwrites(t *testing.T) {
	repo := openTestRepo(t, 0)
	seed(t, repo)
	ctx := context.Background()

	err := repo.Import(ctx, []product.Product{{ID: 1, Name: "PhotoTagger Pro"}}, nil)
	require.NoError(t, err)

	p, err := repo.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "PhotoTagger Pro", p.Name)
	assert.Empty(t, p.Technologies)
}

func TestPing(t *testing.T) {
	repo := openTestRepo(t, 0)
	require.NoError(t, repo.Ping(context.Background()))
}
