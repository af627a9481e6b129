package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vantage/internal/domain"
	"vantage/internal/engine"
	"vantage/internal/performance"
	"vantage/internal/report"
	"vantage/internal/risk"
	"vantage/internal/store"
	"vantage/internal/util"
)

// Request selects what a backtest runs on.
type Request struct {
	Strategy       string
	Symbol         string
	Timeframe      domain.Timeframe
	Start, End     time.Time
	InitialCapital float64
}

// BacktestResult holds the outputs of one backtest run.
type BacktestResult struct {
	RunID     string
	Request   Request
	StartedAt time.Time
	Result    *engine.Result
	Report    performance.Report
}

// Run returns the persistence row of the result.
func (r *BacktestResult) Run() store.Run {
	return store.Run{
		ID:             r.RunID,
		Strategy:       r.Request.Strategy,
		Symbol:         r.Request.Symbol,
		Timeframe:      r.Request.Timeframe.String(),
		Start:          r.Request.Start,
		End:            r.Request.End,
		StartedAt:      r.StartedAt,
		InitialCapital: r.Request.InitialCapital,
		FinalEquity:    r.Report.FinalEquity,
	}
}

// Backtester replays historical bar data through a strategy and computes
// performance metrics.
type Backtester struct {
	store    store.BarStore
	registry *Registry
	engine   *engine.Engine
	log      *slog.Logger
	now      func() time.Time
}

// NewBacktester creates a Backtester that reads bars from the given store,
// looks up strategies in the provided registry and enforces cfg. It returns a
// configuration error for an invalid cfg.
func NewBacktester(barStore store.BarStore, registry *Registry, cfg risk.Config, cal *util.TradingCalendar, log *slog.Logger) (*Backtester, error) {
	log = util.OrDefault(log)
	eng, err := engine.NewEngine(cfg, cal, log)
	if err != nil {
		return nil, err
	}
	return &Backtester{
		store:    barStore,
		registry: registry,
		engine:   eng,
		log:      log.With("component", "backtester"),
		now:      time.Now,
	}, nil
}

// Run executes a backtest for the named strategy over bars read from the
// store for the requested symbol, timeframe and date range.
func (bt *Backtester) Run(ctx context.Context, req Request) (*BacktestResult, error) {
	if bt.store == nil {
		return nil, fmt.Errorf("backtest %s: no bar store configured", req.Symbol)
	}
	bars, err := bt.store.ReadBars(ctx, req.Symbol, req.Timeframe, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", req.Symbol, err)
	}
	bt.log.Info("loaded bars", "symbol", req.Symbol, "timeframe", req.Timeframe.String(), "bars", len(bars))
	return bt.RunBars(req, bars)
}

// RunBars executes a backtest of the named strategy over bars supplied by the
// caller. An empty Start or End in req is filled from the bars.
func (bt *Backtester) RunBars(req Request, bars []domain.Bar) (*BacktestResult, error) {
	s, ok := bt.registry.Get(req.Strategy)
	if !ok {
		return nil, domain.NewConfigurationError("strategy", "unknown strategy %q (have %v)", req.Strategy, bt.registry.List())
	}

	started := bt.now().UTC()
	res, err := bt.engine.Run(bars, s, req.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("backtest %s on %s: %w", req.Strategy, req.Symbol, err)
	}

	if req.Symbol == "" {
		req.Symbol = res.Symbol
	}
	if req.Start.IsZero() {
		req.Start = bars[0].Timestamp
	}
	if req.End.IsZero() {
		req.End = bars[len(bars)-1].Timestamp
	}

	report := performance.Calculate(res.Trades, res.Equity, req.InitialCapital, req.Timeframe.PeriodsPerYear())
	return &BacktestResult{
		RunID:     uuid.NewString(),
		Request:   req,
		StartedAt: started,
		Result:    res,
		Report:    report,
	}, nil
}

// Save persists the run row, trade ledger, equity curve and flat report of r
// to rs. When es is non-nil the equity curve is also written there.
func (r *BacktestResult) Save(ctx context.Context, rs store.ResultStore, es store.EquityStore) error {
	if err := rs.SaveRun(ctx, r.Run()); err != nil {
		return fmt.Errorf("saving run %s: %w", r.RunID, err)
	}
	if err := rs.SaveTrades(ctx, r.RunID, r.Result.Trades); err != nil {
		return fmt.Errorf("saving trades of %s: %w", r.RunID, err)
	}
	if err := rs.SaveEquity(ctx, r.RunID, r.Result.Equity); err != nil {
		return fmt.Errorf("saving equity of %s: %w", r.RunID, err)
	}
	if err := rs.SaveReport(ctx, r.RunID, report.ToMap(r.Report)); err != nil {
		return fmt.Errorf("saving report of %s: %w", r.RunID, err)
	}
	if es != nil {
		if err := es.WriteEquity(ctx, r.RunID, r.Result.Equity); err != nil {
			return fmt.Errorf("exporting equity of %s: %w", r.RunID, err)
		}
	}
	return nil
}
