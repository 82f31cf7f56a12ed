package incidex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/incidex/internal/db/redis"
	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
	"github.com/kailas-cloud/incidex/internal/metrics"
	catalogrepo "github.com/kailas-cloud/incidex/internal/repository/catalog"
	"github.com/kailas-cloud/incidex/internal/repository/memcatalog"
	"github.com/kailas-cloud/incidex/internal/repository/oraclecache"
	"github.com/kailas-cloud/incidex/internal/repository/sqlcatalog"
	openaitransport "github.com/kailas-cloud/incidex/internal/transport/openai"
	bulkuc "github.com/kailas-cloud/incidex/internal/usecase/bulk"
	explainuc "github.com/kailas-cloud/incidex/internal/usecase/explain"
	healthuc "github.com/kailas-cloud/incidex/internal/usecase/health"
	prismuc "github.com/kailas-cloud/incidex/internal/usecase/prism"
	rankinguc "github.com/kailas-cloud/incidex/internal/usecase/ranking"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	maxBulkSize             = 100
)

// Internal interfaces for substitution in tests.
type catalogReader interface {
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	GetIncident(ctx context.Context, id int64) (incident.Incident, error)
}

type rankUseCase interface {
	Rank(ctx context.Context, productID int64, req domrank.Request) ([]domrank.Result, error)
}

type scoreUseCase interface {
	Score(ctx context.Context, inc *incident.Incident, p *product.Product, opts domprism.Options) domprism.Assessment
}

type bulkUseCase interface {
	ScoreIDs(ctx context.Context, productID int64, incidentIDs []int64, opts domprism.Options) ([]domprism.Assessment, error)
	ScorePairs(ctx context.Context, pairs []bulkuc.Pair, opts domprism.Options) ([]domprism.Assessment, error)
	Top(ctx context.Context, productID int64, limit int, opts domprism.Options) ([]domprism.Assessment, error)
}

type explainUseCase interface {
	ExplainIDs(ctx context.Context, productID, incidentID int64, mode explainuc.Mode) (string, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Engine is the incidex library entry point. Safe for concurrent use.
type Engine struct {
	catalog   catalogReader
	ranker    rankUseCase
	scorer    scoreUseCase
	bulk      bulkUseCase
	explainer explainUseCase
	health    healthUseCase
	closeFn   func()
	obs       *observer
}

// backend is an opened catalog with its lifecycle hooks.
type backend struct {
	catalog interface {
		catalogReader
		ListIncidents(ctx context.Context, f incident.Filter) ([]incident.Incident, error)
	}
	pinger healthuc.Pinger
	store  *dbRedis.Store // set for the Redis backend only
	close  func()
}

// New opens the configured catalog and wires the engine.
// The provided context is used for connecting to the catalog.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{concurrency: bulkuc.DefaultConcurrency}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalog == "" {
		return nil, errors.New("incidex: catalog backend required (use WithDataset, WithSQLite, WithPostgres or WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wireEngine(b, cfg, obs), nil
}

func openBackend(ctx context.Context, cfg *engineConfig) (*backend, error) {
	nop := zap.NewNop()
	switch cfg.catalog {
	case catalogDataset:
		repo, err := memcatalog.Load(cfg.dsn)
		if err != nil {
			return nil, fmt.Errorf("incidex: load dataset: %w", err)
		}
		return &backend{catalog: repo, pinger: repo, close: func() {}}, nil
	case catalogSQLite, catalogPostgres:
		repo, err := sqlcatalog.Open(ctx, sqlcatalog.Dialect(cfg.catalog), cfg.dsn, cfg.pageSize, nop)
		if err != nil {
			return nil, fmt.Errorf("incidex: open %s catalog: %w", cfg.catalog, err)
		}
		return &backend{catalog: repo, pinger: repo, close: func() { _ = repo.Close() }}, nil
	case catalogRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("incidex: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("incidex: database not ready: %w", err)
		}
		if err := store.CheckJSON(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("incidex: redis catalog: %w", err)
		}
		return &backend{
			catalog: catalogrepo.New(store, cfg.pageSize, nop),
			pinger:  store,
			store:   store,
			close:   store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("incidex: unknown catalog backend %q", cfg.catalog)
	}
}

func wireEngine(b *backend, cfg *engineConfig, obs *observer) *Engine {
	nop := zap.NewNop()

	// Oracle: noop unless configured (ranking works, scoring falls back).
	var oracle domain.Oracle = noopOracle{}
	var checker healthuc.OracleChecker
	namespace := "custom"
	switch {
	case cfg.oracle != nil:
		oracle = &oracleAdapter{inner: cfg.oracle}
	case cfg.openAIKey != "":
		o := openaitransport.NewOracle(&openaitransport.Config{
			APIKey:   cfg.openAIKey,
			BaseURL:  cfg.openAIBaseURL,
			Model:    cfg.openAIModel,
			Provider: "openai",
			Logger:   nop,
		})
		oracle, checker = o, o
		namespace = cfg.openAIModel
	}
	if b.store != nil && cfg.cacheTTL > 0 && (cfg.oracle != nil || cfg.openAIKey != "") {
		oracle = oraclecache.New(oracle, b.store, namespace, cfg.cacheTTL, metrics.OracleCacheTotal, nop)
	}

	scorer := prismuc.New(oracle, domprism.Weights{}, nop)

	return &Engine{
		catalog:   b.catalog,
		ranker:    rankinguc.New(b.catalog, rankinguc.DefaultConfig(), nop),
		scorer:    scorer,
		bulk:      bulkuc.New(scorer, b.catalog, cfg.concurrency, nop),
		explainer: explainuc.New(oracle, b.catalog, nop),
		health:    healthuc.New(b.pinger, checker),
		closeFn:   b.close,
		obs:       obs,
	}
}

// Close releases the catalog connection.
func (e *Engine) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// Health checks the catalog and, when configured, the oracle provider.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	report := e.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Rank returns catalog incidents ordered by relevance to the product.
// Incidents that fail to evaluate are skipped, never reported as errors.
func (e *Engine) Rank(ctx context.Context, productID int64, opts RankOptions) (out []RankedIncident, err error) {
	start := time.Now()
	defer func() { e.obs.observe("rank", start, "ok", err) }()

	req, err := domrank.NewRequest(opts.Limit, domrank.SortKey(opts.SortBy), opts.RiskDomain, opts.MinSimilarity, opts.MinRisk)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wraps ErrInvalidRequest
	}
	results, err := e.ranker.Rank(ctx, productID, req)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	out = make([]RankedIncident, len(results))
	for i := range results {
		out[i] = rankedFromDomain(&results[i])
	}
	return out, nil
}

// Score assesses one incident for one product. Oracle failures produce a
// fallback assessment; only catalog and option errors are returned.
func (e *Engine) Score(ctx context.Context, productID, incidentID int64, opts ScoreOptions) (a Assessment, err error) {
	start := time.Now()
	status := "ok"
	defer func() { e.obs.observe("score", start, status, err) }()

	o, err := scoreOptions(opts)
	if err != nil {
		return Assessment{}, err
	}
	p, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return Assessment{}, fmt.Errorf("get product: %w", err)
	}
	inc, err := e.catalog.GetIncident(ctx, incidentID)
	if err != nil {
		return Assessment{}, fmt.Errorf("get incident: %w", err)
	}

	res := e.scorer.Score(ctx, &inc, &p, o)
	if res.IsFallback() {
		status = "fallback"
	}
	return assessmentFromDomain(&res), nil
}

// ScoreBulk assesses up to 100 incidents for one product. The result has one
// entry per ID in input order; unknown incident IDs yield fallback entries.
func (e *Engine) ScoreBulk(
	ctx context.Context, productID int64, incidentIDs []int64, opts ScoreOptions,
) (out []Assessment, err error) {
	start := time.Now()
	status := "ok"
	defer func() { e.obs.observe("score_bulk", start, status, err) }()

	if len(incidentIDs) == 0 || len(incidentIDs) > maxBulkSize {
		return nil, fmt.Errorf("%w: incident count must be between 1 and %d", domain.ErrInvalidRequest, maxBulkSize)
	}
	o, err := scoreOptions(opts)
	if err != nil {
		return nil, err
	}

	results, err := e.bulk.ScoreIDs(ctx, productID, incidentIDs, o)
	if err != nil {
		return nil, fmt.Errorf("score bulk: %w", err)
	}
	out, status = assessmentsFromDomain(results)
	return out, nil
}

// ScoreBatch assesses up to 100 independent (product, incident) pairs. The result
// has one entry per pair in input order; unknown products or incidents yield
// fallback entries.
func (e *Engine) ScoreBatch(ctx context.Context, pairs []ScorePair, opts ScoreOptions) (out []Assessment, err error) {
	start := time.Now()
	status := "ok"
	defer func() { e.obs.observe("score_batch", start, status, err) }()

	o, err := scoreOptions(opts)
	if err != nil {
		return nil, err
	}
	in := make([]bulkuc.Pair, len(pairs))
	for i, p := range pairs {
		in[i] = bulkuc.Pair{ProductID: p.ProductID, IncidentID: p.IncidentID}
	}
	results, err := e.bulk.ScorePairs(ctx, in, o)
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	out, status = assessmentsFromDomain(results)
	return out, nil
}

// Top scores the first limit catalog incidents and returns them by descending transferability.
func (e *Engine) Top(ctx context.Context, productID int64, limit int, opts ScoreOptions) (out []Assessment, err error) {
	start := time.Now()
	status := "ok"
	defer func() { e.obs.observe("top", start, status, err) }()

	o, err := scoreOptions(opts)
	if err != nil {
		return nil, err
	}
	results, err := e.bulk.Top(ctx, productID, limit, o)
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	out, status = assessmentsFromDomain(results)
	return out, nil
}

// Explain describes the match between a product and an incident. An empty mode means generic.
// Oracle failures yield a fixed fallback text, not an error.
func (e *Engine) Explain(ctx context.Context, productID, incidentID int64, mode ExplainMode) (text string, err error) {
	start := time.Now()
	defer func() { e.obs.observe("explain", start, "ok", err) }()

	m, err := explainuc.ParseMode(string(mode))
	if err != nil {
		return "", err //nolint:wrapcheck // already wraps ErrInvalidRequest
	}
	text, err = e.explainer.ExplainIDs(ctx, productID, incidentID, m)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	return text, nil
}

func scoreOptions(opts ScoreOptions) (domprism.Options, error) {
	o, err := domprism.NewOptions(domprism.Mode(opts.Mode), domprism.Scale(opts.Scale))
	if err != nil {
		return domprism.Options{}, fmt.Errorf("score options: %w", err)
	}
	return o, nil
}
