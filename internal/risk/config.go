// Package risk implements pre-trade risk checks, position sizing and the exit
// rules (stop loss, take profit, trailing stop, daily loss limit, circuit
// breaker) applied to every open position.
package risk

import (
	"math"

	"vantage/internal/domain"
)

// SizingMethod selects how the Sizer converts a risk budget into a quantity.
type SizingMethod string

const (
	SizingFixedFraction SizingMethod = "fixed_fraction"
	SizingVolatility    SizingMethod = "volatility"
)

// Config holds every risk and execution parameter of a run. All percentages
// are fractions: 0.02 means 2%. A Config is a value; components copy it at
// construction and never mutate it.
type Config struct {
	MaxPositionSizePercent float64      `yaml:"max_position_size_percent"`
	StopLossPercent        float64      `yaml:"stop_loss_percent"`
	TakeProfitPercent      float64      `yaml:"take_profit_percent"` // 0 disables take profit
	TrailingStopPercent    float64      `yaml:"trailing_stop_percent"`
	UseTrailingStop        bool         `yaml:"use_trailing_stop"`
	MaxConcurrentPositions int          `yaml:"max_concurrent_positions"`
	DailyLossLimitPercent  float64      `yaml:"daily_loss_limit_percent"`
	ForceCloseOnDailyLimit bool         `yaml:"force_close_on_daily_limit"`
	SizingMethod           SizingMethod `yaml:"sizing_method"`
	RiskPctPerTrade        float64      `yaml:"risk_pct_per_trade"`
	ATRPeriod              int          `yaml:"atr_period"`
	ATRMultiple            float64      `yaml:"atr_multiple"`
	MinNotional            float64      `yaml:"min_notional"`
	CommissionRate         float64      `yaml:"commission_rate"`
	SlippageRate           float64      `yaml:"slippage_rate"`
	LongOnly               bool         `yaml:"long_only"`

	EnableCircuitBreaker       bool    `yaml:"enable_circuit_breaker"`
	CircuitBreakerMultiple     float64 `yaml:"circuit_breaker_multiple"`
	CircuitBreakerLookback     int     `yaml:"circuit_breaker_lookback"`
	CircuitBreakerCooldownBars int     `yaml:"circuit_breaker_cooldown_bars"`
}

// DefaultConfig returns the stock risk profile.
func DefaultConfig() Config {
	return Config{
		MaxPositionSizePercent: 0.10,
		StopLossPercent:        0.02,
		TakeProfitPercent:      0.04,
		TrailingStopPercent:    0.015,
		UseTrailingStop:        true,
		MaxConcurrentPositions: 3,
		DailyLossLimitPercent:  0.05,
		SizingMethod:           SizingFixedFraction,
		RiskPctPerTrade:        0.01,
		ATRPeriod:              14,
		ATRMultiple:            2,
		CommissionRate:         0.001,
		SlippageRate:           0.0005,

		EnableCircuitBreaker:       true,
		CircuitBreakerMultiple:     3,
		CircuitBreakerLookback:     20,
		CircuitBreakerCooldownBars: 5,
	}
}

// Validate returns a *domain.ConfigurationError describing the first invalid
// parameter, or nil.
func (c Config) Validate() error {
	fractions := []struct {
		name     string
		v        float64
		min, max float64
		minOpen  bool
	}{
		{"max_position_size_percent", c.MaxPositionSizePercent, 0, 1, true},
		{"stop_loss_percent", c.StopLossPercent, 0, 1, true},
		{"take_profit_percent", c.TakeProfitPercent, 0, 10, false},
		{"daily_loss_limit_percent", c.DailyLossLimitPercent, 0, 1, true},
		{"risk_pct_per_trade", c.RiskPctPerTrade, 0, 1, true},
		{"commission_rate", c.CommissionRate, 0, 0.5, false},
		{"slippage_rate", c.SlippageRate, 0, 0.5, false},
	}
	for _, f := range fractions {
		if math.IsNaN(f.v) || f.v < f.min || f.v > f.max || (f.minOpen && f.v == f.min) {
			op := ">="
			if f.minOpen {
				op = ">"
			}
			return domain.NewConfigurationError(f.name, "must be %s %v and <= %v, got %v", op, f.min, f.max, f.v)
		}
	}

	if c.UseTrailingStop && (c.TrailingStopPercent <= 0 || c.TrailingStopPercent >= 1) {
		return domain.NewConfigurationError("trailing_stop_percent", "must be in (0, 1) when use_trailing_stop is set, got %v", c.TrailingStopPercent)
	}
	if c.MaxConcurrentPositions < 1 {
		return domain.NewConfigurationError("max_concurrent_positions", "must be >= 1, got %d", c.MaxConcurrentPositions)
	}
	if c.MinNotional < 0 {
		return domain.NewConfigurationError("min_notional", "must be >= 0, got %v", c.MinNotional)
	}

	switch c.SizingMethod {
	case SizingFixedFraction:
	case SizingVolatility:
		if c.ATRPeriod < 1 {
			return domain.NewConfigurationError("atr_period", "must be >= 1 for volatility sizing, got %d", c.ATRPeriod)
		}
		if c.ATRMultiple <= 0 {
			return domain.NewConfigurationError("atr_multiple", "must be > 0 for volatility sizing, got %v", c.ATRMultiple)
		}
	default:
		return domain.NewConfigurationError("sizing_method", "unknown method %q", c.SizingMethod)
	}

	if c.EnableCircuitBreaker {
		if c.CircuitBreakerMultiple <= 1 {
			return domain.NewConfigurationError("circuit_breaker_multiple", "must be > 1, got %v", c.CircuitBreakerMultiple)
		}
		if c.CircuitBreakerLookback < 1 {
			return domain.NewConfigurationError("circuit_breaker_lookback", "must be >= 1, got %d", c.CircuitBreakerLookback)
		}
		if c.CircuitBreakerCooldownBars < 1 {
			return domain.NewConfigurationError("circuit_breaker_cooldown_bars", "must be >= 1, got %d", c.CircuitBreakerCooldownBars)
		}
	}
	return nil
}
