package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/civicbench/council-cli/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Peers     PeersConfig     `yaml:"peers" mapstructure:"peers"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	PoolMaxConns int32  `yaml:"pool_max_conns" mapstructure:"pool_max_conns"`
	PoolMinConns int32  `yaml:"pool_min_conns" mapstructure:"pool_min_conns"`
}

// CatalogConfig points at an optional metric definition overlay file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PeersConfig bounds the peer search used for metric estimation.
type PeersConfig struct {
	MaxPeers       int     `yaml:"max_peers" mapstructure:"max_peers"`
	PopulationBand float64 `yaml:"population_band" mapstructure:"population_band"`
}

// BenchmarkConfig configures region benchmark runs.
type BenchmarkConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ScoringConfig configures the composite score.
type ScoringConfig struct {
	Weights scoring.Weights `yaml:"weights" mapstructure:"weights"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COUNCIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.pool_max_conns", 10)
	v.SetDefault("store.pool_min_conns", 2)
	v.SetDefault("peers.max_peers", 5)
	v.SetDefault("peers.population_band", 0.5)
	v.SetDefault("benchmark.concurrency", 8)
	v.SetDefault("benchmark.timeout_secs", 30)
	v.SetDefault("benchmark.rate_limit", 20)
	v.SetDefault("scoring.weights.customer_satisfaction", 0.4)
	v.SetDefault("scoring.weights.service_delivery", 0.3)
	v.SetDefault("scoring.weights.value_for_rates", 0.2)
	v.SetDefault("scoring.weights.responsiveness", 0.1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can support the given mode.
// Mode "engine" covers every command that opens the store; mode "catalog"
// covers catalog inspection, which runs without one.
func (c *Config) Validate(mode string) error {
	var errs []string

	// Bounds shared by every mode.
	if c.Peers.MaxPeers < 1 || c.Peers.MaxPeers > 50 {
		errs = append(errs, "peers.max_peers must be between 1 and 50")
	}
	if c.Peers.PopulationBand <= 0 || c.Peers.PopulationBand > 1 {
		errs = append(errs, "peers.population_band must be in (0, 1]")
	}
	if c.Benchmark.Concurrency < 1 || c.Benchmark.Concurrency > 64 {
		errs = append(errs, "benchmark.concurrency must be between 1 and 64")
	}
	if c.Benchmark.TimeoutSecs <= 0 {
		errs = append(errs, "benchmark.timeout_secs must be > 0")
	}
	if c.Benchmark.RateLimit < 0 {
		errs = append(errs, "benchmark.rate_limit must be >= 0")
	}
	weights := map[string]float64{
		"customer_satisfaction": c.Scoring.Weights.CustomerSatisfaction,
		"service_delivery":      c.Scoring.Weights.ServiceDelivery,
		"value_for_rates":       c.Scoring.Weights.ValueForRates,
		"responsiveness":        c.Scoring.Weights.Responsiveness,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("scoring.weights.%s must be >= 0", name))
		}
	}

	switch mode {
	case "engine":
		switch c.Store.Driver {
		case "sqlite":
			// The sqlite driver falls back to a local file when no URL is set.
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	case "catalog":
		// Catalog inspection never touches the store.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
