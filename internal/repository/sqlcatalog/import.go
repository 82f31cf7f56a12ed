package sqlcatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Import upserts products and incidents in one transaction.
func (r *Repo) Import(ctx context.Context, products []product.Product, incidents []incident.Incident) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range products {
		if err := r.upsertProduct(ctx, tx, &products[i]); err != nil {
			return err
		}
	}
	for i := range incidents {
		if err := r.upsertIncident(ctx, tx, &incidents[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (r *Repo) upsertProduct(ctx context.Context, tx *sql.Tx, p *product.Product) error {
	q := r.upsert("products", productColumns)
	_, err := tx.ExecContext(ctx, q,
		p.ID, p.Name, p.Description,
		tagsJSON(p.Technologies), tagsJSON(p.Purposes), tagsJSON(p.EthicalIssues),
		p.ProductURL,
	)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}

func (r *Repo) upsertIncident(ctx context.Context, tx *sql.Tx, inc *incident.Incident) error {
	scores, err := json.Marshal(inc.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores of incident %d: %w", inc.ID, err)
	}
	// Rows without a scale read back as LegacyScale, so the unit default is written out.
	scale := inc.Scale
	if scale == "" {
		scale = prism.Unit
	}
	q := r.upsert("incidents", incidentColumns)
	_, err = tx.ExecContext(ctx, q,
		inc.ID, inc.Title, inc.Description, tagsJSON(inc.Technologies),
		inc.RiskLevel, inc.RiskDomain, inc.ImpactScale, inc.ConfidenceScore,
		string(scores), string(scale), formatTime(inc.CreatedAt), formatTime(inc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert incident %d: %w", inc.ID, err)
	}
	return nil
}

// upsert builds INSERT ... ON CONFLICT (id) DO UPDATE, understood by SQLite and PostgreSQL alike.
func (r *Repo) upsert(table, columns string) string {
	cols := strings.Split(columns, ",")
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, c := range cols {
		c = strings.TrimSpace(c)
		cols[i] = c
		placeholders[i] = r.dialect.ph(i + 1)
		if c != "id" {
			updates = append(updates, c+" = excluded."+c)
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

func tagsJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags) //nolint:errchkjson // []string always marshals
	return string(data)
}
