package sqlcatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

const productColumns = `id, name, description, technology, purpose, ethical_issues, product_url`

const incidentColumns = `id, title, description, technologies, risk_level, risk_domain,
	impact_scale, confidence_score, prism_scores, scale, created_at, updated_at`

// LegacyScale is the declared scale of incident rows with no scale value.
// Catalogs predating the scale column store impact and prism_scores on 1-5.
const LegacyScale = prism.FivePoint

// optionalColumns may be missing from older catalogs. They read as NULL and
// are added by EnsureSchema.
var optionalColumns = map[string][]string{
	"products":  {"ethical_issues"},
	"incidents": {"scale"},
}

// timeLayouts are tried in order when parsing stored timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GetProduct returns a product by ID.
func (r *Repo) GetProduct(ctx context.Context, id int64) (product.Product, error) {
	cols, err := r.selectList(ctx, "products", productColumns)
	if err != nil {
		return product.Product{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM products WHERE id = `+r.dialect.ph(1), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// GetIncident returns an incident by ID.
func (r *Repo) GetIncident(ctx context.Context, id int64) (incident.Incident, error) {
	cols, err := r.selectList(ctx, "incidents", incidentColumns)
	if err != nil {
		return incident.Incident{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM incidents WHERE id = `+r.dialect.ph(1), id)
	inc, err := r.scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return incident.Incident{}, domain.ErrIncidentNotFound
	}
	if err != nil {
		return incident.Incident{}, fmt.Errorf("get incident %d: %w", id, err)
	}
	return inc, nil
}

// ListIncidents pages through incidents by ID (keyset pagination) until the
// table or the filter limit is exhausted. Rows that fail to scan are logged and skipped.
func (r *Repo) ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error) {
	cols, err := r.selectList(ctx, "incidents", incidentColumns)
	if err != nil {
		return nil, err
	}

	var out []incident.Incident
	var after int64
	for {
		pageSize := r.pageSize
		if f.Limit > 0 {
			pageSize = min(pageSize, f.Limit-len(out))
		}
		page, err := r.listPage(ctx, cols, after, f.RiskDomain, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page.incidents...)
		if page.rows < pageSize || (f.Limit > 0 && len(out) >= f.Limit) {
			break
		}
		after = page.lastID
	}
	return out, nil
}

type incidentPage struct {
	incidents []incident.Incident
	rows      int   // rows read, including skipped ones
	lastID    int64 // keyset cursor for the next page
}

func (r *Repo) listPage(ctx context.Context, cols string, after int64, riskDomain string, limit int) (incidentPage, error) {
	var sb strings.Builder
	args := []any{after}
	sb.WriteString(`SELECT ` + cols + ` FROM incidents WHERE id > ` + r.dialect.ph(1))
	if riskDomain != "" {
		args = append(args, riskDomain)
		sb.WriteString(` AND risk_domain = ` + r.dialect.ph(len(args)))
	}
	args = append(args, limit)
	sb.WriteString(` ORDER BY id LIMIT ` + r.dialect.ph(len(args)))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return incidentPage{}, fmt.Errorf("list incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	page := incidentPage{incidents: make([]incident.Incident, 0, limit)}
	for rows.Next() {
		page.rows++
		inc, err := r.scanIncident(rows)
		if err != nil {
			id, ok := currentID(rows)
			if !ok {
				return incidentPage{}, fmt.Errorf("scan incident after id %d: %w", page.lastID, err)
			}
			r.logger.Warn("Skipping unreadable incident row", zap.Int64("incident_id", id), zap.Error(err))
			page.lastID = id
			continue
		}
		page.incidents = append(page.incidents, inc)
		page.lastID = inc.ID
	}
	if err := rows.Err(); err != nil {
		return incidentPage{}, fmt.Errorf("list incidents: %w", err)
	}
	return page, nil
}

// currentID re-reads only the id of the current row after a failed scan.
func currentID(rows *sql.Rows) (int64, bool) {
	names, err := rows.Columns()
	if err != nil || len(names) == 0 {
		return 0, false
	}
	var id sql.NullInt64
	dest := make([]any, len(names))
	dest[0] = &id
	for i := 1; i < len(dest); i++ {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil || !id.Valid {
		return 0, false
	}
	return id.Int64, true
}

// selectList returns the column list for table, reading NULL for optional
// columns the table lacks. Resolved once per Repo.
func (r *Repo) selectList(ctx context.Context, table, columns string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.selects[table]; ok {
		return s, nil
	}

	present, err := r.tableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if !present[c] && slices.Contains(optionalColumns[table], c) {
			c = "NULL AS " + c
		}
		cols[i] = c
	}
	list := strings.Join(cols, ", ")
	if r.selects == nil {
		r.selects = make(map[string]string, 2)
	}
	r.selects[table] = list
	return list, nil
}

func (r *Repo) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT * FROM `+table+` WHERE 1 = 0`)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.ToLower(n)] = true
	}
	return present, nil
}

func scanProduct(row rowScanner) (product.Product, error) {
	var (
		p                            product.Product
		desc, url                    sql.NullString
		technology, purpose, ethical sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &technology, &purpose, &ethical, &url); err != nil {
		return product.Product{}, err
	}
	p.Description = desc.String
	p.ProductURL = url.String
	p.Technologies = domain.DecodeTags([]byte(technology.String))
	p.Purposes = domain.DecodeTags([]byte(purpose.String))
	p.EthicalIssues = domain.DecodeTags([]byte(ethical.String))
	return p, nil
}

func (r *Repo) scanIncident(row rowScanner) (incident.Incident, error) {
	var (
		inc                         incident.Incident
		desc, techs, level, riskDom sql.NullString
		scores, scale               sql.NullString
		createdAt, updatedAt        any
		impact, confidence          any
	)
	err := row.Scan(&inc.ID, &inc.Title, &desc, &techs, &level, &riskDom,
		&impact, &confidence, &scores, &scale, &createdAt, &updatedAt)
	if err != nil {
		return incident.Incident{}, err
	}

	inc.Description = desc.String
	inc.Technologies = domain.DecodeTags([]byte(techs.String))
	inc.RiskLevel = level.String
	inc.RiskDomain = riskDom.String
	inc.Scale = prism.Scale(scale.String)
	if inc.Scale == "" {
		inc.Scale = LegacyScale
	}
	inc.ImpactScale = r.floatColumn(inc.ID, "impact_scale", impact)
	inc.ConfidenceScore = r.floatColumn(inc.ID, "confidence_score", confidence)
	if scores.String != "" {
		if err := json.Unmarshal([]byte(scores.String), &inc.Scores); err != nil {
			r.logger.Warn("Ignoring malformed prism_scores",
				zap.Int64("incident_id", inc.ID), zap.Error(err))
			inc.Scores = prism.LegacyVector{}
		}
	}
	inc.CreatedAt = parseTime(createdAt)
	inc.UpdatedAt = parseTime(updatedAt)
	return inc, nil
}

// floatColumn converts a nullable numeric column. Values that are not numbers
// are logged and read as missing.
func (r *Repo) floatColumn(id int64, column string, v any) *float64 {
	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case int64:
		f = float64(x)
	case []byte:
		f, err = parseFloat(string(x))
	case string:
		f, err = parseFloat(x)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		r.logger.Warn("Ignoring malformed numeric column",
			zap.Int64("incident_id", id), zap.String("column", column), zap.Error(err))
		return nil
	}
	return &f
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// parseTime accepts RFC 3339 text, SQL datetime text and native timestamps.
func parseTime(v any) time.Time {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
