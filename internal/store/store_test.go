package store

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vantage/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", domain.OneDay, 2024)
	wantBarPath := filepath.Join("/data", "bars", "1Day", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}

	ep := ps.equityPath("run-1")
	wantEquityPath := filepath.Join("/data", "equity", "run-1.parquet")
	if ep != wantEquityPath {
		t.Errorf("equityPath mismatch:\n  got  %s\n  want %s", ep, wantEquityPath)
	}
}

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
			Open:       193.9,
			High:       194.4,
			Low:        191.7,
			Close:      192.5,
			Volume:     42000000,
			TradeCount: 480000,
			VWAP:       192.9,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	bars := sampleBars()

	if err := ps.WriteBars(ctx, domain.OneDay, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", domain.OneDay,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != len(bars) {
		t.Fatalf("ReadBars returned %d bars, want %d", len(got), len(bars))
	}
	for i := range bars {
		if !got[i].Timestamp.Equal(bars[i].Timestamp) {
			t.Errorf("bar %d Timestamp = %v, want %v", i, got[i].Timestamp, bars[i].Timestamp)
		}
		if got[i].Close != bars[i].Close || got[i].Volume != bars[i].Volume || got[i].VWAP != bars[i].VWAP {
			t.Errorf("bar %d = %+v, want %+v", i, got[i], bars[i])
		}
	}

	// Range filter is inclusive on both ends.
	got, err = ps.ReadBars(ctx, "AAPL", domain.OneDay, bars[1].Timestamp, bars[1].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Close != 185.5 {
		t.Errorf("ReadBars single day = %+v, want the 2024-01-02 bar", got)
	}

	// Other timeframes are stored separately.
	got, err = ps.ReadBars(ctx, "AAPL", domain.OneHour, bars[0].Timestamp, bars[2].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars 1Hour: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars 1Hour returned %d bars, want 0", len(got))
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	bars := sampleBars()

	if err := ps.WriteBars(ctx, domain.OneDay, bars[1:2]); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	updated := bars[1:]
	updated[0].Close = 185.9
	if err := ps.WriteBars(ctx, domain.OneDay, updated); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", domain.OneDay, bars[1].Timestamp, bars[2].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2 after merge", len(got))
	}
	if got[0].Close != 185.9 {
		t.Errorf("merged Close = %v, want 185.9 (newer write wins)", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	syms, err := ps.ListSymbols(ctx, domain.OneDay)
	if err != nil || len(syms) != 0 {
		t.Fatalf("ListSymbols on empty store = %v, %v, want none", syms, err)
	}

	bars := sampleBars()
	msft := bars[2]
	msft.Symbol = "MSFT"
	if err := ps.WriteBars(ctx, domain.OneDay, append(bars, msft)); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	syms, err = ps.ListSymbols(ctx, domain.OneDay)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("ListSymbols = %v, want [AAPL MSFT]", syms)
	}
}

func TestParquetStoreEquity(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	ts := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	points := []domain.EquityPoint{
		{Timestamp: ts, Equity: 10000, Cash: 10000},
		{Timestamp: ts.Add(time.Hour), Equity: 10120.5, Cash: 9990},
	}

	if err := ps.WriteEquity(ctx, "run-1", points); err != nil {
		t.Fatalf("WriteEquity: %v", err)
	}
	got, err := ps.ReadEquity(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadEquity: %v", err)
	}
	if len(got) != 2 || got[1].Equity != 10120.5 || !got[1].Timestamp.Equal(points[1].Timestamp) {
		t.Errorf("ReadEquity = %+v, want %+v", got, points)
	}

	if got, err := ps.ReadEquity(ctx, "missing"); err != nil || len(got) != 0 {
		t.Errorf("ReadEquity(missing) = %v, %v, want empty", got, err)
	}
	if err := ps.WriteEquity(ctx, "", points); err == nil {
		t.Error("WriteEquity with empty run id: expected error")
	}
}

// ---------------------------------------------------------------------------
// SQLite
// ---------------------------------------------------------------------------

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	ts := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	run := Run{
		ID:             "run-1",
		Strategy:       "sma-cross",
		Symbol:         "AAPL",
		Timeframe:      "1Day",
		Start:          ts,
		End:            ts.AddDate(0, 1, 0),
		StartedAt:      ts.AddDate(0, 2, 0),
		InitialCapital: 10000,
		FinalEquity:    10250,
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	trades := []domain.Trade{
		{Symbol: "AAPL", Side: domain.PositionSideLong, EntryPrice: 100, ExitPrice: 98, Quantity: 50,
			EntryTime: ts, ExitTime: ts.Add(24 * time.Hour), Fees: 9.9, PnL: -109.9, PnLPercent: -2.198,
			ExitReason: domain.ExitReasonStopLoss},
		{Symbol: "AAPL", Side: domain.PositionSideShort, EntryPrice: 99, ExitPrice: 95, Quantity: 10,
			EntryTime: ts.Add(48 * time.Hour), ExitTime: ts.Add(72 * time.Hour), Fees: 1.94, PnL: 38.06, PnLPercent: 3.84,
			ExitReason: domain.ExitReasonTakeProfit},
	}
	if err := s.SaveTrades(ctx, run.ID, trades[:1]); err != nil {
		t.Fatalf("SaveTrades: %v", err)
	}
	if err := s.SaveTrades(ctx, run.ID, trades[1:]); err != nil {
		t.Fatalf("SaveTrades (append): %v", err)
	}

	got, err := s.ListTrades(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTrades returned %d trades, want 2", len(got))
	}
	for i := range trades {
		if got[i] != trades[i] {
			t.Errorf("trade %d = %+v, want %+v", i, got[i], trades[i])
		}
	}

	points := []domain.EquityPoint{
		{Timestamp: ts, Equity: 10000, Cash: 10000},
		{Timestamp: ts.Add(24 * time.Hour), Equity: 9890.1, Cash: 9890.1},
	}
	if err := s.SaveEquity(ctx, run.ID, points); err != nil {
		t.Fatalf("SaveEquity: %v", err)
	}

	metrics := map[string]float64{"total_return": 0.025, "max_drawdown": -0.011}
	if err := s.SaveReport(ctx, run.ID, metrics); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	loaded, err := s.LoadReport(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	for k, v := range metrics {
		if math.Abs(loaded[k]-v) > 1e-12 {
			t.Errorf("metric %s = %v, want %v", k, loaded[k], v)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0] != run {
		t.Errorf("ListRuns = %+v, want [%+v]", runs, run)
	}
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

func TestReadBarsCSV(t *testing.T) {
	in := strings.Join([]string{
		"timestamp,open,high,low,close,volume",
		"2024-01-02,185,186.5,184,185.5,50000000",
		"2024-01-03T00:00:00Z,185.5,187,185,186,45000000",
		"1704326400000,186,188,185.5,187.5,40000000",
	}, "\n")

	bars, err := ReadBarsCSV(strings.NewReader(in), "aapl")
	if err != nil {
		t.Fatalf("ReadBarsCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("ReadBarsCSV returned %d bars, want 3", len(bars))
	}
	want := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	for i, ts := range want {
		if !bars[i].Timestamp.Equal(ts) {
			t.Errorf("bar %d Timestamp = %v, want %v", i, bars[i].Timestamp, ts)
		}
		if bars[i].Symbol != "AAPL" {
			t.Errorf("bar %d Symbol = %q, want AAPL", i, bars[i].Symbol)
		}
	}
	if bars[1].High != 187 || bars[2].Volume != 40000000 {
		t.Errorf("decoded values wrong: %+v", bars)
	}

	if _, err := ReadBarsCSV(strings.NewReader("timestamp,open,high,low,close,volume\nyesterday,1,1,1,1,1"), "X"); err == nil {
		t.Error("ReadBarsCSV with bad timestamp: expected error")
	}
}

func TestBarsCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bars := sampleBars()
	if err := WriteBarsCSV(&buf, bars); err != nil {
		t.Fatalf("WriteBarsCSV: %v", err)
	}
	got, err := ReadBarsCSV(&buf, "")
	if err != nil {
		t.Fatalf("ReadBarsCSV: %v", err)
	}
	if len(got) != len(bars) {
		t.Fatalf("round trip returned %d bars, want %d", len(got), len(bars))
	}
	for i := range bars {
		if got[i] != bars[i] {
			t.Errorf("bar %d = %+v, want %+v", i, got[i], bars[i])
		}
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	trades := []domain.Trade{{
		Symbol: "AAPL", Side: domain.PositionSideLong, EntryPrice: 100, ExitPrice: 104, Quantity: 5,
		EntryTime: ts, ExitTime: ts.Add(time.Hour), PnL: 20, PnLPercent: 4, ExitReason: domain.ExitReasonTakeProfit,
	}}
	points := []domain.EquityPoint{{Timestamp: ts, Equity: 1000, Cash: 1000}}

	tradesPath := filepath.Join(dir, "trades.csv")
	if err := ExportCSV(tradesPath, "", trades, points); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "symbol,side,entry_time,exit_time,") {
		t.Errorf("trades csv header = %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "take_profit") || !strings.Contains(out, "2024-01-02T15:00:00Z") {
		t.Errorf("trades csv missing fields: %q", out)
	}

	buf.Reset()
	if err := WriteEquityCSV(&buf, points); err != nil {
		t.Fatalf("WriteEquityCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "timestamp,equity,cash") {
		t.Errorf("equity csv = %q", buf.String())
	}
}
