// Package store defines storage interfaces for market data and backtest
// results and implements them on Parquet files, SQLite and CSV.
package store

import (
	"context"
	"time"

	"vantage/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars of one timeframe, replacing bars with
	// the same symbol and timestamp.
	WriteBars(ctx context.Context, tf domain.Timeframe, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and timeframe within
	// [start, end], sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all symbols with bars of the given timeframe.
	ListSymbols(ctx context.Context, tf domain.Timeframe) ([]string, error)
}

// EquityStore persists equity curves by run ID.
type EquityStore interface {
	WriteEquity(ctx context.Context, runID string, points []domain.EquityPoint) error
	ReadEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}

// Run describes one persisted backtest.
type Run struct {
	ID             string
	Strategy       string
	Symbol         string
	Timeframe      string
	Start          time.Time
	End            time.Time
	StartedAt      time.Time
	InitialCapital float64
	FinalEquity    float64
}

// ResultStore persists the outputs of backtest runs.
type ResultStore interface {
	// SaveRun inserts or replaces the run row.
	SaveRun(ctx context.Context, run Run) error

	// SaveTrades appends the trade ledger of a run.
	SaveTrades(ctx context.Context, runID string, trades []domain.Trade) error

	// SaveEquity appends the equity curve of a run.
	SaveEquity(ctx context.Context, runID string, points []domain.EquityPoint) error

	// SaveReport stores the flat metrics of a run, replacing earlier values.
	SaveReport(ctx context.Context, runID string, metrics map[string]float64) error

	// ListRuns returns all runs, most recent first.
	ListRuns(ctx context.Context) ([]Run, error)

	// ListTrades returns the trades of a run in ledger order.
	ListTrades(ctx context.Context, runID string) ([]domain.Trade, error)

	// LoadReport returns the metrics saved for a run.
	LoadReport(ctx context.Context, runID string) (map[string]float64, error)
}
