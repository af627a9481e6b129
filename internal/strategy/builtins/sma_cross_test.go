package builtins

import (
	"errors"
	"testing"
	"time"

	"vantage/internal/domain"
	"vantage/internal/strategy"
)

func closesToBars(closes ...float64) []domain.Bar {
	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "AAPL",
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestSMACrossSignals(t *testing.T) {
	s := NewSMACross(2, 3)

	tests := []struct {
		name   string
		closes []float64
		want   domain.Signal
	}{
		{"warming up", []float64{10, 10, 13}, domain.SignalHold},
		{"bullish cross", []float64{10, 10, 10, 13}, domain.SignalBuy},
		{"bearish cross", []float64{10, 10, 10, 7}, domain.SignalSell},
		{"flat", []float64{10, 10, 10, 10}, domain.SignalHold},
		{"already above", []float64{10, 11, 12, 13}, domain.SignalHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Signal(closesToBars(tt.closes...)); got != tt.want {
				t.Errorf("Signal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSMACrossRSIFilter(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 13}

	plain := NewSMACross(2, 3)
	if got := plain.Signal(closesToBars(closes...)); got != domain.SignalBuy {
		t.Fatalf("unfiltered Signal = %q, want buy", got)
	}

	p := DefaultSMACrossParams()
	p.Fast, p.Slow, p.RSIPeriod = 2, 3, 2
	filtered, err := NewSMACrossWithParams(p)
	if err != nil {
		t.Fatalf("NewSMACrossWithParams: %v", err)
	}
	if filtered.Warmup() != 6 {
		t.Errorf("Warmup = %d, want 6", filtered.Warmup())
	}
	// Only gains in the window, so RSI is 100 and the buy is vetoed.
	if got := filtered.Signal(closesToBars(closes...)); got != domain.SignalHold {
		t.Errorf("filtered Signal = %q, want hold", got)
	}
}

func TestSMACrossParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*SMACrossParams)
		field string
	}{
		{"fast >= slow", func(p *SMACrossParams) { p.Fast, p.Slow = 30, 30 }, "sma_cross.fast"},
		{"zero fast", func(p *SMACrossParams) { p.Fast = 0 }, "sma_cross.fast"},
		{"rsi period 1", func(p *SMACrossParams) { p.RSIPeriod = 1 }, "sma_cross.rsi_period"},
		{"rsi bounds", func(p *SMACrossParams) { p.RSIPeriod, p.RSIOversold = 14, 80 }, "sma_cross.rsi_oversold"},
		{"macd partial", func(p *SMACrossParams) { p.MACDFast = 12 }, "sma_cross.macd_fast"},
		{"bb std dev", func(p *SMACrossParams) { p.BBPeriod, p.BBStdDev = 20, 0 }, "sma_cross.bb_period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultSMACrossParams()
			tt.edit(&p)
			err := p.Validate()
			var ce *domain.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	if err := DefaultSMACrossParams().Validate(); err != nil {
		t.Errorf("default params invalid: %v", err)
	}
}

func TestSMACrossWarmupCoversFilters(t *testing.T) {
	p := DefaultSMACrossParams()
	p.MACDFast, p.MACDSlow, p.MACDSignal = 12, 26, 9
	p.BBPeriod = 20
	s, err := NewSMACrossWithParams(p)
	if err != nil {
		t.Fatalf("NewSMACrossWithParams: %v", err)
	}
	if s.Warmup() != 37 {
		t.Errorf("Warmup = %d, want 37", s.Warmup())
	}

	// A long series exercises every indicator without panicking.
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + float64(i%17) - float64(i%5)
	}
	sig := s.Signal(closesToBars(closes...))
	if sig != domain.SignalBuy && sig != domain.SignalSell && sig != domain.SignalHold {
		t.Errorf("Signal = %q", sig)
	}
	if got, want := s.String(), "sma-cross(10/30 macd12/26/9 bb20)"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestRegister(t *testing.T) {
	reg := strategy.NewRegistry()
	if err := Register(reg, DefaultSMACrossParams()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	names := reg.List()
	if len(names) != 2 || names[0] != "buy-and-hold" || names[1] != "sma-cross" {
		t.Errorf("List = %v, want [buy-and-hold sma-cross]", names)
	}

	bad := DefaultSMACrossParams()
	bad.Slow = 5
	if err := Register(strategy.NewRegistry(), bad); err == nil {
		t.Error("Register accepted fast >= slow")
	}
}

func TestBuyAndHold(t *testing.T) {
	if got := (BuyAndHold{}).Signal(nil); got != domain.SignalBuy {
		t.Errorf("Signal = %q, want buy", got)
	}
}
