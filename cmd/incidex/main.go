package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/config"
	dbRedis "github.com/kailas-cloud/incidex/internal/db/redis"
	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/events"
	logpkg "github.com/kailas-cloud/incidex/internal/logger"
	"github.com/kailas-cloud/incidex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/incidex/internal/repository/budget"
	"github.com/kailas-cloud/incidex/internal/repository/oraclecache"
	chiTransport "github.com/kailas-cloud/incidex/internal/transport/chi"
	openaiOracle "github.com/kailas-cloud/incidex/internal/transport/openai"
	bulkuc "github.com/kailas-cloud/incidex/internal/usecase/bulk"
	explainuc "github.com/kailas-cloud/incidex/internal/usecase/explain"
	healthuc "github.com/kailas-cloud/incidex/internal/usecase/health"
	oracleuc "github.com/kailas-cloud/incidex/internal/usecase/oracle"
	prismuc "github.com/kailas-cloud/incidex/internal/usecase/prism"
	rankinguc "github.com/kailas-cloud/incidex/internal/usecase/ranking"
	usageuc "github.com/kailas-cloud/incidex/internal/usecase/usage"
	"github.com/kailas-cloud/incidex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting incidex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_backend", cfg.Catalog.Backend),
		zap.String("oracle_model", cfg.Oracle.Model),
	)

	ctx := context.Background()

	// Redis/Valkey backs the redis catalog and the oracle cache; budget counters persist there when it is up.
	var store *dbRedis.Store
	if cfg.NeedsDatabase() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
	}

	catalog, err := openCatalog(ctx, &cfg.Catalog, store, logger)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer catalog.close()
	logger.Info("Catalog ready", zap.String("backend", cfg.Catalog.Backend))

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEngineMetrics()
	metrics.RegisterOracleMetrics()

	// Single BudgetTracker shared by the oracle chain and the usage service.
	var budget *oracleuc.BudgetTracker
	budgetCfg := cfg.Oracle.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := oracleuc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = oracleuc.BudgetActionReject
		}
		budget = oracleuc.NewBudgetTracker(
			cfg.Oracle.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultGrace))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker oracleuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	oracle := buildOracle(&cfg.Oracle, store, budgetChecker, logger)
	logger.Info("Oracle created",
		zap.String("provider", cfg.Oracle.Provider),
		zap.String("model", cfg.Oracle.Model),
		zap.Bool("cache", cfg.Oracle.Cache.Enabled && store != nil),
	)

	publisher, err := events.Connect(ctx, cfg.Events.NATSURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	// Use case services
	rankCfg := rankinguc.DefaultConfig()
	rankCfg.TextWeight = cfg.Scoring.TextWeight
	rankCfg.TagWeight = cfg.Scoring.TagWeight
	rankCfg.ParallelThreshold = cfg.Scoring.ParallelThreshold
	rankSvc := rankinguc.New(catalog, rankCfg, logger)

	scoreSvc := prismuc.New(oracle, cfg.Scoring.Transferability, logger).
		WithRisk(cfg.Scoring.Risk, cfg.Scoring.LevelFactors)
	if publisher.Enabled() {
		scoreSvc = scoreSvc.WithPublisher(publisher)
		logger.Info("Publishing assessments", zap.String("stream", events.StreamName))
	}
	bulkSvc := bulkuc.New(scoreSvc, catalog, cfg.Scoring.BulkConcurrency, logger)
	explainSvc := explainuc.New(oracle, catalog, logger)
	usageSvc := usageuc.New(budgetReader, cfg.Oracle.Model)

	healthSvc := healthuc.New(catalog, oracle)
	if store != nil && cfg.Catalog.Backend != config.CatalogRedis {
		healthSvc = healthSvc.WithDatabase(store)
	}

	server := chiTransport.NewServer(catalog, rankSvc, scoreSvc, bulkSvc, explainSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ServerOptions{BaseRouter: r})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// oracleChain is the assembled oracle: completion plus provider health.
type oracleChain interface {
	domain.Oracle
	domain.HealthChecker
}

// buildOracle assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The instrumented layer is outermost so budget accounting sees cache hits.
func buildOracle(
	cfg *config.OracleConfig,
	store *dbRedis.Store,
	budget oracleuc.BudgetChecker,
	logger *zap.Logger,
) oracleChain {
	base := openaiOracle.NewOracle(&openaiOracle.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:   logger,
	})

	var oracle domain.Oracle = base
	if cfg.Cache.Enabled && store != nil {
		oracle = oraclecache.New(
			base, store, cfg.Model,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.OracleCacheTotal, logger,
		)
	}

	return oracleuc.NewInstrumentedOracle(oracle, cfg.Provider, cfg.Model, budget, logger)
}
