// Package sqlcatalog reads products and incidents from a SQL database (SQLite or PostgreSQL).
package sqlcatalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultPageSize is the keyset page used when listing incidents.
const DefaultPageSize = 200

// Dialect selects the SQL flavour.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unknown sql dialect %q", d)
	}
}

// ph returns the n-th (1-based) bind placeholder.
func (d Dialect) ph(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
}

// Repo implements the usecase catalog contracts over database/sql.
type Repo struct {
	db       *sql.DB
	dialect  Dialect
	pageSize int
	logger   *zap.Logger

	mu      sync.Mutex
	selects map[string]string // table -> select list
}

// Open connects to the catalog database and verifies the connection.
// For SQLite dsn is a file path.
func Open(ctx context.Context, dialect Dialect, dsn string, pageSize int, logger *zap.Logger) (*Repo, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", dialect, err)
	}
	if dialect == SQLite {
		for _, pragma := range sqlitePragmas {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("set pragma: %w", err)
			}
		}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s catalog: %w", dialect, err)
	}
	return New(conn, dialect, pageSize, logger), nil
}

// New wraps an open database handle. pageSize <= 0 uses DefaultPageSize.
func New(conn *sql.DB, dialect Dialect, pageSize int, logger *zap.Logger) *Repo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Repo{db: conn, dialect: dialect, pageSize: pageSize, logger: logger}
}

// Ping checks database availability.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		technology TEXT,
		purpose TEXT,
		ethical_issues TEXT,
		product_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		technologies TEXT,
		risk_level TEXT,
		risk_domain TEXT,
		impact_scale DOUBLE PRECISION,
		confidence_score DOUBLE PRECISION,
		prism_scores TEXT,
		scale TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_risk_domain ON incidents(risk_domain)`,
}

// EnsureSchema creates the catalog tables when they do not exist and adds
// optional columns missing from older tables.
// Tag columns hold JSON arrays, prism_scores a JSON object.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	tables := make([]string, 0, len(optionalColumns))
	for table := range optionalColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		present, err := r.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		for _, c := range optionalColumns[table] {
			if present[c] {
				continue
			}
			if _, err := r.db.ExecContext(ctx, `ALTER TABLE `+table+` ADD COLUMN `+c+` TEXT`); err != nil {
				return fmt.Errorf("add column %s.%s: %w", table, c, err)
			}
			r.logger.Info("Added catalog column", zap.String("table", table), zap.String("column", c))
		}
	}

	r.mu.Lock()
	r.selects = nil
	r.mu.Unlock()
	return nil
}
