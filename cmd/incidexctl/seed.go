package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/incidex/internal/db/redis"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	logpkg "github.com/kailas-cloud/incidex/internal/logger"
	catalogrepo "github.com/kailas-cloud/incidex/internal/repository/catalog"
	"github.com/kailas-cloud/incidex/internal/repository/memcatalog"
	"github.com/kailas-cloud/incidex/internal/repository/sqlcatalog"
)

const redisReadyTimeout = 10 * time.Second

// importer is a catalog that accepts bulk upserts.
type importer interface {
	Import(ctx context.Context, products []product.Product, incidents []incident.Incident) error
}

func (c *cli) seedCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "seed --from <dataset> (--sqlite <file> | --postgres <dsn> | --redis <addr>)",
		Short: "Load a dataset file into a persistent catalog",
		Long: `Upsert every product and incident of a YAML or JSON dataset into a SQLite,
PostgreSQL or Redis/Valkey catalog. SQL tables are created when missing.

Examples:
  incidexctl seed --from catalog.yaml --sqlite catalog.db
  INCIDEX_POSTGRES=postgres://localhost/incidex incidexctl seed --from catalog.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				return errors.New("--from is required")
			}
			logger, err := logpkg.NewLogger("cli")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ds, err := memcatalog.LoadDataset(from)
			if err != nil {
				return err //nolint:wrapcheck // already names the file
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), c.v.GetDuration(flagTimeout))
			defer cancel()

			target, closeFn, err := c.openSeedTarget(ctx, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := target.Import(ctx, ds.Products, ds.Incidents); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products and %d incidents.\n",
				len(ds.Products), len(ds.Incidents))
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Dataset file to import")
	return cmd
}

func (c *cli) openSeedTarget(ctx context.Context, logger *zap.Logger) (importer, func(), error) {
	switch {
	case c.v.GetString(flagSQLite) != "":
		return openSQLTarget(ctx, sqlcatalog.SQLite, c.v.GetString(flagSQLite), logger)
	case c.v.GetString(flagPostgres) != "":
		return openSQLTarget(ctx, sqlcatalog.Postgres, c.v.GetString(flagPostgres), logger)
	case c.v.GetString(flagRedis) != "":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      []string{c.v.GetString(flagRedis)},
			Password:   c.v.GetString(flagRedisPassword),
			ClientName: "incidexctl",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, redisReadyTimeout); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		if err := store.CheckJSON(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis catalog: %w", err)
		}
		return catalogrepo.New(store, 0, logger), store.Close, nil
	default:
		return nil, nil, errors.New("seed target required: --sqlite, --postgres or --redis")
	}
}

func openSQLTarget(ctx context.Context, dialect sqlcatalog.Dialect, dsn string, logger *zap.Logger) (importer, func(), error) {
	repo, err := sqlcatalog.Open(ctx, dialect, dsn, 0, logger)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // already names the dialect
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, err //nolint:wrapcheck // already wrapped
	}
	return repo, func() { _ = repo.Close() }, nil
}
