package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"vantage/internal/domain"
	"vantage/internal/performance"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.00"},
		{1234.5, "1,234.50"},
		{-97.9, "-97.90"},
		{-0.001, "0.00"},
		{math.Inf(1), "inf"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.v); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatPctAndRatio(t *testing.T) {
	if got := FormatPct(0.1234); got != "+12.34%" {
		t.Errorf("FormatPct = %q", got)
	}
	if got := FormatPct(-0.05); got != "-5.00%" {
		t.Errorf("FormatPct = %q", got)
	}
	if got := FormatRatio(math.Inf(1)); got != "inf" {
		t.Errorf("FormatRatio(+Inf) = %q", got)
	}
	if got := FormatRatio(2.333); got != "2.33" {
		t.Errorf("FormatRatio = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{45 * time.Minute, "45m"},
		{3 * time.Hour, "3h"},
		{3*time.Hour + 20*time.Minute, "3h20m"},
		{52 * time.Hour, "2d4h"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func sampleReport() performance.Report {
	return performance.Report{
		InitialCapital:   10000,
		FinalEquity:      10500,
		TotalPnL:         500,
		TotalFees:        12.5,
		TotalReturn:      0.05,
		AnnualizedReturn: 0.21,
		TotalTrades:      4,
		WinningTrades:    4,
		WinRate:          1,
		ProfitFactor:     math.Inf(1),
		Expectancy:       125,
		AvgWin:           125,
		LargestWin:       200,
		SharpeRatio:      1.5,
		MaxDrawdown:      -0.02,
		AvgTradeDuration: 90 * time.Minute,
		Periods:          120,
	}
}

func TestRender(t *testing.T) {
	out := Render(Header{
		RunID:     "run-1",
		Strategy:  "sma-cross",
		Symbol:    "AAPL",
		Timeframe: "1Hour",
		Start:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
	}, sampleReport(), map[string]int{"circuit_breaker_active": 3})

	for _, want := range []string{
		"sma-cross", "AAPL", "2024-01-02 to 2024-06-28", "run-1",
		"10,500.00", "+5.00%", "inf", "1h30m", "circuit_breaker_active",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTrades(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	trades := []domain.Trade{
		{Symbol: "AAPL", Side: domain.PositionSideLong, EntryTime: t0, ExitTime: t0.Add(time.Hour), Quantity: 50, EntryPrice: 100, ExitPrice: 98, PnL: -100, ExitReason: domain.ExitReasonStopLoss},
		{Symbol: "AAPL", Side: domain.PositionSideShort, EntryTime: t0.Add(2 * time.Hour), ExitTime: t0.Add(3 * time.Hour), Quantity: 10, EntryPrice: 101, ExitPrice: 100, PnL: 10, ExitReason: domain.ExitReasonSignal},
	}

	out := RenderTrades(trades, 1)
	if !strings.Contains(out, "-100.00") || !strings.Contains(out, string(domain.ExitReasonStopLoss)) {
		t.Errorf("RenderTrades missing first trade:\n%s", out)
	}
	if !strings.Contains(out, "... 1 more") {
		t.Errorf("RenderTrades missing truncation line:\n%s", out)
	}
	if all := RenderTrades(trades, 0); strings.Contains(all, "more") || !strings.Contains(all, "short") {
		t.Errorf("RenderTrades(all):\n%s", all)
	}
}

func TestMapRoundTrip(t *testing.T) {
	r := sampleReport()
	m := ToMap(r)
	if m[MetricProfitFactor] != math.MaxFloat64 {
		t.Errorf("profit_factor = %v, want MaxFloat64", m[MetricProfitFactor])
	}
	if m[MetricTotalTrades] != 4 || m[MetricAvgTradeSeconds] != 5400 {
		t.Errorf("map = %v", m)
	}
	if got := FromMap(m); got != r {
		t.Errorf("FromMap(ToMap(r)) = %+v, want %+v", got, r)
	}
}
