package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/risk"
)

// Catalog backends.
const (
	CatalogRedis    = "redis"
	CatalogSQLite   = "sqlite"
	CatalogPostgres = "postgres"
	CatalogMemory   = "memory"
)

// Config holds the incidex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Events   EventsConfig   `yaml:"events"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
// Required by the redis catalog, the oracle cache and the budget store.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig selects and configures the product/incident source.
type CatalogConfig struct {
	Backend  string `yaml:"backend"` // redis, sqlite, postgres, memory (default: sqlite)
	DSN      string `yaml:"dsn"`     // sqlite file path or postgres URL
	Path     string `yaml:"path"`    // dataset file for the memory backend
	PageSize int    `yaml:"page_size"`
}

// OracleConfig holds scoring oracle settings.
type OracleConfig struct {
	Provider   string       `yaml:"provider"`
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Budget     BudgetConfig `yaml:"budget"`
	Cache      CacheConfig  `yaml:"cache"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CacheConfig holds oracle completion memoization settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// ScoringConfig holds engine coefficients and fan-out limits.
type ScoringConfig struct {
	TextWeight        float64           `yaml:"text_weight"`
	TagWeight         float64           `yaml:"tag_weight"`
	ParallelThreshold int               `yaml:"parallel_threshold"`
	BulkConcurrency   int               `yaml:"bulk_concurrency"`
	Transferability   prism.Weights     `yaml:"transferability_weights"`
	Risk              risk.Weights      `yaml:"risk_weights"`
	LevelFactors      risk.LevelFactors `yaml:"level_factors"`
}

// EventsConfig holds scoring event publication settings. Empty URL disables publishing.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// bulk scoring waits on the oracle
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Catalog.Backend == "" {
		c.Catalog.Backend = CatalogSQLite
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = 200
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gpt-4o-mini"
	}
	if c.Oracle.TimeoutSec <= 0 {
		c.Oracle.TimeoutSec = 30
	}
	if c.Oracle.Cache.TTLSec <= 0 {
		c.Oracle.Cache.TTLSec = 24 * 3600
	}
	c.Scoring.applyDefaults()
}

func (s *ScoringConfig) applyDefaults() {
	if s.TextWeight == 0 && s.TagWeight == 0 {
		s.TextWeight = 0.4
		s.TagWeight = 0.6
	}
	if s.ParallelThreshold <= 0 {
		s.ParallelThreshold = 256
	}
	if s.BulkConcurrency <= 0 {
		s.BulkConcurrency = 4
	}
	if s.Transferability.IsZero() {
		s.Transferability = prism.DefaultWeights()
	}
	if s.Risk.IsZero() {
		s.Risk = risk.DefaultWeights()
	}
	if s.LevelFactors.IsZero() {
		s.LevelFactors = risk.DefaultLevelFactors()
	}
}

// NeedsDatabase reports whether any enabled component talks to Redis/Valkey.
func (c *Config) NeedsDatabase() bool {
	return c.Catalog.Backend == CatalogRedis || c.Oracle.Cache.Enabled
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.NeedsDatabase() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Catalog.Backend {
	case CatalogRedis:
	case CatalogSQLite, CatalogPostgres:
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for backend %q", c.Catalog.Backend)
		}
	case CatalogMemory:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for backend %q", c.Catalog.Backend)
		}
	default:
		return fmt.Errorf("catalog.backend must be one of redis, sqlite, postgres, memory, got %q", c.Catalog.Backend)
	}
	switch c.Oracle.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"oracle.budget.action must be \"warn\" or \"reject\", got %q",
			c.Oracle.Budget.Action,
		)
	}
	return c.Scoring.validate()
}

func (s *ScoringConfig) validate() error {
	if s.TextWeight < 0 || s.TagWeight < 0 {
		return fmt.Errorf("scoring.text_weight and scoring.tag_weight must not be negative")
	}
	if d := s.TextWeight + s.TagWeight - 1; d > 0.001 || d < -0.001 {
		return fmt.Errorf("scoring.text_weight + scoring.tag_weight must sum to 1.0, got %.4f", s.TextWeight+s.TagWeight)
	}
	if err := s.Transferability.Validate(); err != nil {
		return fmt.Errorf("scoring.transferability_weights: %w", err)
	}
	if err := s.Risk.Validate(); err != nil {
		return fmt.Errorf("scoring.risk_weights: %w", err)
	}
	if err := s.LevelFactors.Validate(); err != nil {
		return fmt.Errorf("scoring.level_factors: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
