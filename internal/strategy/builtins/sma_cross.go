// Package builtins provides built-in strategy implementations that ship with
// vantage.
package builtins

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"vantage/internal/domain"
	"vantage/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// maxLookback bounds the closes handed to the indicators on each bar.
const maxLookback = 256

// SMACrossParams configures SMACross. Filters with a zero period are off.
type SMACrossParams struct {
	Fast int `yaml:"fast"`
	Slow int `yaml:"slow"`

	RSIPeriod     int     `yaml:"rsi_period"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIOversold   float64 `yaml:"rsi_oversold"`

	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`

	BBPeriod int     `yaml:"bb_period"`
	BBStdDev float64 `yaml:"bb_std_dev"`
}

// DefaultSMACrossParams returns a 10/30 crossover without filters.
func DefaultSMACrossParams() SMACrossParams {
	return SMACrossParams{
		Fast:          10,
		Slow:          30,
		RSIOverbought: 70,
		RSIOversold:   30,
		BBStdDev:      2,
	}
}

// Validate returns a configuration error for unusable periods.
func (p SMACrossParams) Validate() error {
	if p.Fast < 1 || p.Slow <= p.Fast {
		return domain.NewConfigurationError("sma_cross.fast", "need 1 <= fast < slow, got fast=%d slow=%d", p.Fast, p.Slow)
	}
	if p.RSIPeriod != 0 && p.RSIPeriod < 2 {
		return domain.NewConfigurationError("sma_cross.rsi_period", "must be 0 or >= 2, got %d", p.RSIPeriod)
	}
	if p.RSIPeriod > 0 && !(p.RSIOversold < p.RSIOverbought) {
		return domain.NewConfigurationError("sma_cross.rsi_oversold", "must be below rsi_overbought, got %v >= %v", p.RSIOversold, p.RSIOverbought)
	}
	if p.MACDFast != 0 || p.MACDSlow != 0 || p.MACDSignal != 0 {
		if p.MACDFast < 2 || p.MACDSlow <= p.MACDFast || p.MACDSignal < 1 {
			return domain.NewConfigurationError("sma_cross.macd_fast", "need 2 <= fast < slow and signal >= 1, got %d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal)
		}
	}
	if p.BBPeriod != 0 && (p.BBPeriod < 2 || p.BBStdDev <= 0) {
		return domain.NewConfigurationError("sma_cross.bb_period", "need period >= 2 and std dev > 0, got %d/%v", p.BBPeriod, p.BBStdDev)
	}
	return nil
}

// SMACross implements a simple moving average crossover strategy. It generates
// a buy signal when the short-period SMA crosses above the long-period SMA,
// and a sell signal when it crosses below. Optional RSI, MACD and Bollinger
// band filters veto crossovers into stretched markets.
type SMACross struct {
	p    SMACrossParams
	need int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods and no filters.
func NewSMACross(short, long int) *SMACross {
	p := DefaultSMACrossParams()
	p.Fast, p.Slow = short, long
	s, err := NewSMACrossWithParams(p)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSMACrossWithParams validates p and creates the strategy.
func NewSMACrossWithParams(p SMACrossParams) (*SMACross, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	need := p.Slow + 1
	if p.RSIPeriod > 0 {
		need = max(need, 3*p.RSIPeriod)
	}
	if p.MACDSlow > 0 {
		need = max(need, p.MACDSlow+p.MACDSignal+2)
	}
	if p.BBPeriod > 0 {
		need = max(need, p.BBPeriod+1)
	}
	return &SMACross{p: p, need: need}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Params returns the strategy parameters.
func (s *SMACross) Params() SMACrossParams {
	return s.p
}

// Warmup returns the number of bars needed before the first signal.
func (s *SMACross) Warmup() int {
	return s.need
}

// Signal returns buy or sell on the bar where the fast SMA crosses the slow
// SMA, subject to the enabled filters, and hold otherwise.
func (s *SMACross) Signal(window []domain.Bar) domain.Signal {
	if len(window) < s.need {
		return domain.SignalHold
	}
	tail := window[max(0, len(window)-max(s.need, maxLookback)):]
	closes := make([]float64, len(tail))
	for i, b := range tail {
		closes[i] = b.Close
	}
	last := len(closes) - 1

	fast := talib.Sma(closes, s.p.Fast)
	slow := talib.Sma(closes, s.p.Slow)

	var sig domain.Signal
	switch {
	case fast[last-1] <= slow[last-1] && fast[last] > slow[last]:
		sig = domain.SignalBuy
	case fast[last-1] >= slow[last-1] && fast[last] < slow[last]:
		sig = domain.SignalSell
	default:
		return domain.SignalHold
	}

	if s.p.RSIPeriod > 0 {
		rsi := talib.Rsi(closes, s.p.RSIPeriod)[last]
		if (sig == domain.SignalBuy && rsi > s.p.RSIOverbought) || (sig == domain.SignalSell && rsi < s.p.RSIOversold) {
			return domain.SignalHold
		}
	}
	if s.p.MACDSlow > 0 {
		macd, signal, _ := talib.Macd(closes, s.p.MACDFast, s.p.MACDSlow, s.p.MACDSignal)
		if (sig == domain.SignalBuy && macd[last] <= signal[last]) || (sig == domain.SignalSell && macd[last] >= signal[last]) {
			return domain.SignalHold
		}
	}
	if s.p.BBPeriod > 0 {
		upper, _, lower := talib.BBands(closes, s.p.BBPeriod, s.p.BBStdDev, s.p.BBStdDev, talib.SMA)
		if (sig == domain.SignalBuy && closes[last] > upper[last]) || (sig == domain.SignalSell && closes[last] < lower[last]) {
			return domain.SignalHold
		}
	}
	return sig
}

// String describes the configuration, e.g. "sma-cross(10/30 rsi14)".
func (s *SMACross) String() string {
	out := fmt.Sprintf("%s(%d/%d", s.Name(), s.p.Fast, s.p.Slow)
	if s.p.RSIPeriod > 0 {
		out += fmt.Sprintf(" rsi%d", s.p.RSIPeriod)
	}
	if s.p.MACDSlow > 0 {
		out += fmt.Sprintf(" macd%d/%d/%d", s.p.MACDFast, s.p.MACDSlow, s.p.MACDSignal)
	}
	if s.p.BBPeriod > 0 {
		out += fmt.Sprintf(" bb%d", s.p.BBPeriod)
	}
	return out + ")"
}

// Register adds the built-in strategies configured by p to reg.
func Register(reg *strategy.Registry, p SMACrossParams) error {
	s, err := NewSMACrossWithParams(p)
	if err != nil {
		return err
	}
	reg.Register(s)
	reg.Register(BuyAndHold{})
	return nil
}
