// Package engine replays a strategy over historical bars, delegating entry
// approval and exit rules to the risk manager and fills to the simulated
// broker.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"vantage/internal/broker"
	"vantage/internal/domain"
	"vantage/internal/portfolio"
	"vantage/internal/risk"
	"vantage/internal/util"
)

// Strategy produces a signal from the bars up to and including the current
// one. window must not be modified.
type Strategy interface {
	Signal(window []domain.Bar) domain.Signal
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(window []domain.Bar) domain.Signal

// Signal calls f(window).
func (f StrategyFunc) Signal(window []domain.Bar) domain.Signal {
	return f(window)
}

// BarSnapshot is the portfolio as marked at the close of one bar, before that
// bar's exits and entries.
type BarSnapshot struct {
	Timestamp time.Time
	portfolio.Snapshot
}

// Result is the complete output of one run.
type Result struct {
	Symbol         string
	InitialCapital float64
	Trades         []domain.Trade
	Equity         []domain.EquityPoint
	Snapshots      []BarSnapshot
	Anomalies      []domain.ExecutionAnomaly
	Rejections     map[risk.RejectReason]int
	FinalCash      float64
}

// FinalEquity returns the equity of the last point of the curve.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return r.InitialCapital
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// Engine runs backtests for one risk configuration. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	cfg    risk.Config
	risk   *risk.Manager
	broker broker.Broker
	cal    *util.TradingCalendar
	log    *slog.Logger
}

// NewEngine validates cfg and creates an Engine. cal decides trading-day
// boundaries for the daily loss limit; nil means UTC days.
func NewEngine(cfg risk.Config, cal *util.TradingCalendar, log *slog.Logger) (*Engine, error) {
	rm, err := risk.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		cal = util.NewTradingCalendar(nil)
	}
	return &Engine{
		cfg:    cfg,
		risk:   rm,
		broker: broker.NewSimulator(cfg.CommissionRate, cfg.SlippageRate),
		cal:    cal,
		log:    util.OrDefault(log).With("component", "engine"),
	}, nil
}

// Config returns the engine's risk configuration.
func (e *Engine) Config() risk.Config {
	return e.cfg
}

// Run replays s over bars starting with initialCapital. bars must be a
// non-empty, strictly ascending series of a single symbol; otherwise Run
// returns a *domain.DataError and no result. bars is never modified.
func (e *Engine) Run(bars []domain.Bar, s Strategy, initialCapital float64) (*Result, error) {
	if s == nil {
		return nil, domain.NewConfigurationError("strategy", "must not be nil")
	}
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, domain.NewConfigurationError("initial_capital", "must be > 0, got %v", initialCapital)
	}
	if err := domain.ValidateBars(bars); err != nil {
		return nil, err
	}

	r := newRun(e, bars, s, initialCapital)
	for i := range bars {
		if err := r.step(i); err != nil {
			return nil, err
		}
	}
	if err := r.liquidate(); err != nil {
		return nil, err
	}

	res := r.res
	res.FinalCash = r.tracker.Cash()
	e.log.Info("backtest complete",
		"symbol", res.Symbol,
		"bars", len(bars),
		"trades", len(res.Trades),
		"anomalies", len(res.Anomalies),
		"final_equity", res.FinalEquity(),
	)
	return res, nil
}

// ---------------------------------------------------------------------------
// Run state
// ---------------------------------------------------------------------------

// run is the mutable state of one Run call.
type run struct {
	e        *Engine
	bars     []domain.Bar
	strategy Strategy
	tracker  *portfolio.Tracker
	state    *risk.State
	ind      indicators
	res      *Result

	// per-bar signal cache
	sigBar int
	sig    domain.Signal
}

func newRun(e *Engine, bars []domain.Bar, s Strategy, initialCapital float64) *run {
	return &run{
		e:        e,
		bars:     bars,
		strategy: s,
		tracker:  portfolio.NewTracker(initialCapital),
		state:    e.risk.NewState(),
		ind:      computeIndicators(bars, e.cfg.ATRPeriod),
		sigBar:   -1,
		res: &Result{
			Symbol:         bars[0].Symbol,
			InitialCapital: initialCapital,
			Equity:         make([]domain.EquityPoint, 0, len(bars)),
			Snapshots:      make([]BarSnapshot, 0, len(bars)),
			Rejections:     make(map[risk.RejectReason]int),
		},
	}
}

// signal queries the strategy at most once per bar.
func (r *run) signal(i int) domain.Signal {
	if r.sigBar != i {
		r.sigBar = i
		r.sig = r.strategy.Signal(r.bars[: i+1 : i+1]).Normalize()
	}
	return r.sig
}

func (r *run) step(i int) error {
	bar := r.bars[i]

	// 1. Mark to market and record equity.
	for _, sym := range r.tracker.Symbols() {
		r.tracker.MarkToMarket(sym, bar.Close)
	}
	equity := r.tracker.Equity()
	r.e.risk.BeginBar(r.state, r.e.cal.DayOf(bar.Timestamp), equity, r.ind.trueRange[i])
	r.state.OpenPositionCount = r.tracker.OpenCount()
	r.res.Equity = append(r.res.Equity, domain.EquityPoint{
		Timestamp: bar.Timestamp,
		Equity:    equity,
		Cash:      r.tracker.Cash(),
	})
	r.res.Snapshots = append(r.res.Snapshots, BarSnapshot{Timestamp: bar.Timestamp, Snapshot: r.tracker.Snapshot()})

	// 2. Exits, then trailing-stop updates for the survivors.
	exited := false
	for _, sym := range r.tracker.Symbols() {
		pos, _ := r.tracker.Position(sym)
		if ex, ok := r.e.risk.CheckExit(pos, bar, r.state, r.signal(i)); ok {
			closed, err := r.exit(pos, bar, ex.Price, ex.Reason, false)
			if err != nil {
				return err
			}
			if closed {
				exited = true
				continue
			}
		}
		if r.e.cfg.UseTrailingStop {
			if err := r.tracker.SetTrailingStop(sym, r.e.risk.TrailTo(pos, bar)); err != nil {
				return err
			}
		}
	}
	r.state.OpenPositionCount = r.tracker.OpenCount()

	// 3. Entries. Never on a bar with an exit, and never on the last bar where
	// the position could not be closed after its entry.
	if exited || i == len(r.bars)-1 || r.tracker.OpenCount() >= r.e.cfg.MaxConcurrentPositions {
		return nil
	}
	return r.enter(i, bar)
}

func (r *run) enter(i int, bar domain.Bar) error {
	side, ok := domain.SideForSignal(r.signal(i))
	if !ok {
		return nil
	}
	if side == domain.PositionSideShort && r.e.cfg.LongOnly {
		return nil
	}
	if r.tracker.Has(bar.Symbol) {
		return nil
	}

	approval, rej := r.e.risk.ApproveEntry(risk.EntryRequest{
		Symbol:     bar.Symbol,
		Side:       side,
		Bar:        bar,
		EntryPrice: r.e.broker.Price(domain.FillActionEntry, side, bar.Close),
		ATR:        r.ind.atr[i],
	}, r.tracker.Snapshot(), r.state)
	if rej != nil {
		r.res.Rejections[rej.Reason]++
		r.e.log.Debug("entry rejected", "symbol", bar.Symbol, "time", bar.Timestamp, "reason", rej.String())
		return nil
	}

	fill, anomaly := r.e.broker.Fill(broker.FillRequest{
		Action:   domain.FillActionEntry,
		Side:     side,
		Quote:    bar.Close,
		Quantity: approval.Quantity,
		Bar:      bar,
	})
	if anomaly != nil {
		r.anomaly(*anomaly)
		return nil
	}

	pos := domain.Position{
		Symbol:            bar.Symbol,
		Side:              side,
		EntryPrice:        fill.Price,
		Quantity:          fill.Quantity,
		EntryTime:         bar.Timestamp,
		EntryFee:          fill.Fee,
		StopLossPrice:     approval.StopLossPrice,
		TakeProfitPrice:   approval.TakeProfitPrice,
		TrailingStopPrice: approval.TrailingStopPrice,
	}
	if err := r.tracker.Open(pos); err != nil {
		return fmt.Errorf("entry at %s: %w", bar.Timestamp.Format(time.RFC3339), err)
	}
	r.state.OpenPositionCount = r.tracker.OpenCount()
	r.e.log.Debug("entry",
		"symbol", pos.Symbol,
		"side", pos.Side,
		"time", pos.EntryTime,
		"price", pos.EntryPrice,
		"qty", pos.Quantity,
		"stop", pos.StopLossPrice,
	)
	return nil
}

// exit fills and closes pos at quote. It reports false when the fill was
// refused and the position stays open.
func (r *run) exit(pos domain.Position, bar domain.Bar, quote float64, reason domain.ExitReason, final bool) (bool, error) {
	fill, anomaly := r.e.broker.Fill(broker.FillRequest{
		Action:          domain.FillActionExit,
		Side:            pos.Side,
		Quote:           quote,
		Quantity:        pos.Quantity,
		Bar:             bar,
		SkipVolumeCheck: final,
	})
	if anomaly != nil {
		r.anomaly(*anomaly)
		return false, nil
	}

	trade, err := r.tracker.Close(pos.Symbol, fill.Price, fill.Fee, bar.Timestamp, reason)
	if err != nil {
		return false, fmt.Errorf("exit at %s: %w", bar.Timestamp.Format(time.RFC3339), err)
	}
	r.e.risk.RecordRealized(r.state, trade.PnL)
	r.res.Trades = append(r.res.Trades, trade)
	r.e.log.Debug("exit",
		"symbol", trade.Symbol,
		"time", trade.ExitTime,
		"price", trade.ExitPrice,
		"reason", trade.ExitReason,
		"pnl", trade.PnL,
	)
	return true, nil
}

func (r *run) anomaly(a domain.ExecutionAnomaly) {
	r.res.Anomalies = append(r.res.Anomalies, a)
	r.e.log.Warn("execution anomaly", "symbol", a.Symbol, "time", a.Timestamp, "action", a.Action, "reason", a.Reason)
}

// liquidate closes every open position at the last close and rewrites the
// final equity point and snapshot to the resulting state.
func (r *run) liquidate() error {
	last := r.bars[len(r.bars)-1]
	for _, sym := range r.tracker.Symbols() {
		pos, _ := r.tracker.Position(sym)
		if _, err := r.exit(pos, last, last.Close, domain.ExitReasonSignal, true); err != nil {
			return err
		}
	}

	n := len(r.res.Equity) - 1
	r.res.Equity[n].Equity = r.tracker.Equity()
	r.res.Equity[n].Cash = r.tracker.Cash()
	r.res.Snapshots[n].Snapshot = r.tracker.Snapshot()
	return nil
}
