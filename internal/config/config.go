// Package config loads the vantage YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"vantage/internal/domain"
	"vantage/internal/risk"
	"vantage/internal/strategy/builtins"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for vantage.
type Config struct {
	Storage    Storage          `yaml:"storage"`
	Logging    Logging          `yaml:"logging"`
	Alpaca     Alpaca           `yaml:"alpaca"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Risk       risk.Config      `yaml:"risk"`
	Strategies StrategiesConfig `yaml:"strategies"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and the endpoint of the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchConfig holds parameters for bar downloads.
type FetchConfig struct {
	Symbols         []string `yaml:"symbols"`
	StartDate       string   `yaml:"start_date"`
	BatchSize       int      `yaml:"batch_size"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	MaxAttempts     int      `yaml:"max_attempts"`
}

// BacktestConfig holds the defaults of a single backtest run.
type BacktestConfig struct {
	Strategy       string  `yaml:"strategy"`
	Timeframe      string  `yaml:"timeframe"`
	InitialCapital float64 `yaml:"initial_capital"`
	// Timezone names the exchange zone whose calendar days drive the daily
	// loss limit.
	Timezone string `yaml:"timezone"`
}

// SweepConfig defines the stop-loss / take-profit grid of a parameter sweep.
type SweepConfig struct {
	Workers            int       `yaml:"workers"`
	StopLossPercents   []float64 `yaml:"stop_loss_percents"`
	TakeProfitPercents []float64 `yaml:"take_profit_percents"`
}

// StrategiesConfig holds the parameters of the built-in strategies.
type StrategiesConfig struct {
	SMACross builtins.SMACrossParams `yaml:"sma_cross"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/vantage.db",
		},
		Logging: Logging{Level: "info", Format: "text"},
		Alpaca:  Alpaca{Feed: "iex"},
		Fetch: FetchConfig{
			StartDate:       "2020-01-01",
			BatchSize:       100,
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
		Backtest: BacktestConfig{
			Strategy:       "sma-cross",
			Timeframe:      "1Day",
			InitialCapital: 100000,
			Timezone:       "America/New_York",
		},
		Sweep: SweepConfig{
			Workers:            4,
			StopLossPercents:   []float64{0.01, 0.02, 0.03},
			TakeProfitPercents: []float64{0, 0.04, 0.06},
		},
		Risk: risk.DefaultConfig(),
		Strategies: StrategiesConfig{
			SMACross: builtins.DefaultSMACrossParams(),
		},
	}
}

// Validate returns a *domain.ConfigurationError for the first unusable field.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Strategies.SMACross.Validate(); err != nil {
		return err
	}
	if _, err := domain.ParseTimeframe(c.Backtest.Timeframe); err != nil {
		return domain.NewConfigurationError("backtest.timeframe", "%v", err)
	}
	if !(c.Backtest.InitialCapital > 0) {
		return domain.NewConfigurationError("backtest.initial_capital", "must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Sweep.Workers < 1 {
		return domain.NewConfigurationError("sweep.workers", "must be at least 1, got %d", c.Sweep.Workers)
	}
	if c.Storage.DataDir == "" {
		return domain.NewConfigurationError("storage.data_dir", "must be set")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over Default(),
// and then applies environment variable overrides. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("VANTAGE_INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.NewConfigurationError("VANTAGE_INITIAL_CAPITAL", "%v", err)
		}
		cfg.Backtest.InitialCapital = f
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}
