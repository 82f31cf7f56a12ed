package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/config"
	dbRedis "github.com/kailas-cloud/incidex/internal/db/redis"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	catalogrepo "github.com/kailas-cloud/incidex/internal/repository/catalog"
	"github.com/kailas-cloud/incidex/internal/repository/memcatalog"
	"github.com/kailas-cloud/incidex/internal/repository/sqlcatalog"
)

// catalogReader is what every backend provides to the use cases.
type catalogReader interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
	ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// catalogBackend pairs a backend with its health check and release hook.
type catalogBackend struct {
	catalogReader
	pinger
	close func()
}

func openCatalog(ctx context.Context, cfg *config.CatalogConfig, store *dbRedis.Store, logger *zap.Logger) (*catalogBackend, error) {
	switch cfg.Backend {
	case config.CatalogRedis:
		if store == nil {
			return nil, errors.New("redis catalog requires database.addrs")
		}
		if err := store.CheckJSON(ctx); err != nil {
			return nil, fmt.Errorf("redis catalog: %w", err)
		}
		return &catalogBackend{
			catalogReader: catalogrepo.New(store, cfg.PageSize, logger),
			pinger:        store,
			close:         func() {},
		}, nil
	case config.CatalogSQLite, config.CatalogPostgres:
		repo, err := sqlcatalog.Open(ctx, sqlcatalog.Dialect(cfg.Backend), cfg.DSN, cfg.PageSize, logger)
		if err != nil {
			return nil, fmt.Errorf("open sql catalog: %w", err)
		}
		return &catalogBackend{
			catalogReader: repo,
			pinger:        repo,
			close: func() {
				if err := repo.Close(); err != nil {
					logger.Warn("Failed to close catalog", zap.Error(err))
				}
			},
		}, nil
	case config.CatalogMemory:
		repo, err := memcatalog.Load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		products, incidents := repo.Len()
		logger.Info("Dataset loaded", zap.Int("products", products), zap.Int("incidents", incidents))
		return &catalogBackend{catalogReader: repo, pinger: repo, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Backend)
	}
}
