package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kailas-cloud/incidex"
	"github.com/kailas-cloud/incidex/internal/version"
)

const envPrefix = "INCIDEX"

// Persistent flag names. Each one is also read from INCIDEX_<NAME> with dashes as underscores.
const (
	flagConfig        = "config"
	flagDataset       = "dataset"
	flagSQLite        = "sqlite"
	flagPostgres      = "postgres"
	flagRedis         = "redis"
	flagRedisPassword = "redis-password"
	flagOpenAIKey     = "openai-key"
	flagOpenAIBaseURL = "openai-base-url"
	flagModel         = "model"
	flagCacheTTL      = "cache-ttl"
	flagConcurrency   = "concurrency"
	flagOutput        = "output"
	flagTimeout       = "timeout"
)

var errNoCatalog = errors.New("one of --dataset, --sqlite, --postgres or --redis is required")

// cli carries state shared by all subcommands.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "incidexctl",
		Short: "Rank and score AI incidents against products",
		Long: `incidexctl retrieves catalog incidents similar to a product and scores how
well each one transfers to it.

Every flag can also be set through the environment, e.g. INCIDEX_DATASET or
INCIDEX_OPENAI_KEY, or through a config file passed with --config.

Examples:
  incidexctl --dataset catalog.yaml rank 1 --sort relevance
  incidexctl --sqlite catalog.db score 1 7 --scale percent
  incidexctl seed --from catalog.yaml --sqlite catalog.db`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.loadConfig()
		},
	}
	root.SetVersionTemplate("incidexctl version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.String(flagConfig, "", "Config file (yaml, json or toml)")
	pf.String(flagDataset, "", "Catalog dataset file held in memory")
	pf.String(flagSQLite, "", "SQLite catalog file")
	pf.String(flagPostgres, "", "PostgreSQL catalog DSN")
	pf.String(flagRedis, "", "Redis/Valkey catalog address")
	pf.String(flagRedisPassword, "", "Redis/Valkey password")
	pf.String(flagOpenAIKey, "", "API key for the scoring oracle (empty disables scoring)")
	pf.String(flagOpenAIBaseURL, "", "OpenAI-compatible base URL")
	pf.String(flagModel, "gpt-4o-mini", "Oracle model")
	pf.Duration(flagCacheTTL, 0, "Oracle cache TTL (redis catalog only)")
	pf.Int(flagConcurrency, 0, "Parallel oracle calls for bulk scoring (0 = default)")
	pf.StringP(flagOutput, "o", "text", "Output format: text or json")
	pf.Duration(flagTimeout, 5*time.Minute, "Overall command timeout")

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(pf)

	root.AddCommand(
		c.rankCmd(),
		c.scoreCmd(),
		c.topCmd(),
		c.explainCmd(),
		c.healthCmd(),
		c.seedCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	path := c.v.GetString(flagConfig)
	if path == "" {
		return nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// engineOptions translates flags into library options. Exactly one catalog backend must be set.
func (c *cli) engineOptions() ([]incidex.Option, error) {
	var opts []incidex.Option
	backends := 0
	if p := c.v.GetString(flagDataset); p != "" {
		opts = append(opts, incidex.WithDataset(p))
		backends++
	}
	if p := c.v.GetString(flagSQLite); p != "" {
		opts = append(opts, incidex.WithSQLite(p))
		backends++
	}
	if dsn := c.v.GetString(flagPostgres); dsn != "" {
		opts = append(opts, incidex.WithPostgres(dsn))
		backends++
	}
	if addr := c.v.GetString(flagRedis); addr != "" {
		opts = append(opts, incidex.WithRedis(addr, c.v.GetString(flagRedisPassword)))
		backends++
	}
	switch {
	case backends == 0:
		return nil, errNoCatalog
	case backends > 1:
		return nil, errors.New("only one catalog backend may be set")
	}

	if key := c.v.GetString(flagOpenAIKey); key != "" {
		opts = append(opts, incidex.WithOpenAI(key, c.v.GetString(flagOpenAIBaseURL), c.v.GetString(flagModel)))
	}
	if ttl := c.v.GetDuration(flagCacheTTL); ttl > 0 {
		opts = append(opts, incidex.WithOracleCache(ttl))
	}
	if n := c.v.GetInt(flagConcurrency); n > 0 {
		opts = append(opts, incidex.WithConcurrency(n))
	}
	return opts, nil
}

// withEngine opens the engine for the duration of fn.
func (c *cli) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *incidex.Engine) error) error {
	opts, err := c.engineOptions()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.v.GetDuration(flagTimeout))
	defer cancel()

	e, err := incidex.New(ctx, opts...)
	if err != nil {
		return err //nolint:wrapcheck // library errors are already prefixed
	}
	defer e.Close()
	return fn(ctx, e)
}

func (c *cli) printer(cmd *cobra.Command) (*printer, error) {
	return newPrinter(cmd.OutOrStdout(), c.v.GetString(flagOutput))
}
