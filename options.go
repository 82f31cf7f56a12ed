package incidex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type catalogKind string

const (
	catalogDataset  catalogKind = "dataset"
	catalogSQLite   catalogKind = "sqlite"
	catalogPostgres catalogKind = "postgres"
	catalogRedis    catalogKind = "redis"
)

type engineConfig struct {
	catalog  catalogKind
	dsn      string // dataset path, SQLite file or Postgres DSN
	addrs    []string
	password string
	pageSize int

	oracle        Oracle
	openAIKey     string
	openAIBaseURL string
	openAIModel   string
	cacheTTL      time.Duration

	concurrency int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDataset serves the catalog from a YAML or JSON dataset file held in memory.
func WithDataset(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.catalog = catalogDataset
		c.dsn = path
	})
}

// WithSQLite reads the catalog from a SQLite database file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.catalog = catalogSQLite
		c.dsn = path
	})
}

// WithPostgres reads the catalog from PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *engineConfig) {
		c.catalog = catalogPostgres
		c.dsn = dsn
	})
}

// WithRedis reads the catalog from JSON documents in Redis or Valkey.
// The same connection backs the completion cache when WithOracleCache is set.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.catalog = catalogRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPageSize sets how many incidents a catalog backend reads per page.
// Default: 200.
func WithPageSize(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.pageSize = n
	})
}

// WithOracle sets a custom scoring oracle. Takes precedence over WithOpenAI.
func WithOracle(o Oracle) Option {
	return optionFunc(func(c *engineConfig) {
		c.oracle = o
	})
}

// WithOpenAI scores with an OpenAI-compatible chat completions API.
// An empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *engineConfig) {
		c.openAIKey = apiKey
		c.openAIBaseURL = baseURL
		c.openAIModel = model
	})
}

// WithOracleCache memoizes completions for ttl. Requires WithRedis; ignored otherwise.
func WithOracleCache(ttl time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.cacheTTL = ttl
	})
}

// WithConcurrency bounds parallel oracle calls in bulk scoring.
// Default: 4.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine operation metrics (counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}
