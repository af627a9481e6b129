package risk

import (
	"fmt"
	"math"

	"vantage/internal/domain"
	"vantage/internal/portfolio"
)

// EntryRequest describes a proposed entry. EntryPrice is the expected fill
// price including slippage; ATR is zero while unavailable.
type EntryRequest struct {
	Symbol     string
	Side       domain.PositionSide
	Bar        domain.Bar
	EntryPrice float64
	ATR        float64
}

// Approval is a sized, approved entry with its exit levels fixed.
type Approval struct {
	Quantity          float64
	EntryPrice        float64
	StopLossPrice     float64
	TakeProfitPrice   float64
	TrailingStopPrice float64
}

// Exit is a triggered exit condition. Price is the quote price before
// slippage.
type Exit struct {
	Reason domain.ExitReason
	Price  float64
}

// Manager gates entries and computes exit conditions. It holds only the
// immutable Config; all per-run state lives in a State passed to each call,
// so one Manager may serve concurrent runs.
type Manager struct {
	cfg   Config
	sizer Sizer
}

// NewManager validates cfg and returns a Manager for it.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, sizer: NewSizer(cfg)}, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// NewState returns fresh risk state for a run.
func (m *Manager) NewState() *State {
	return &State{breaker: NewCircuitBreaker(m.cfg)}
}

// ---------------------------------------------------------------------------
// Per-bar state
// ---------------------------------------------------------------------------

// BeginBar rolls the daily accounting when day differs from the current
// trading day, using equity as the capital at day start, and feeds the bar's
// true range into the circuit breaker. It reports whether a new day began.
func (m *Manager) BeginBar(st *State, day string, equity, trueRange float64) bool {
	newDay := day != st.CurrentTradingDay
	if newDay {
		st.CurrentTradingDay = day
		st.DayStartCapital = equity
		st.DailyRealizedPnL = 0
		st.DailyLimitBreached = false
	}
	st.CircuitBreakerActive = st.breaker.Observe(trueRange)
	return newDay
}

// RecordRealized adds a closed trade's pnl to the daily total and latches the
// daily limit once it is breached.
func (m *Manager) RecordRealized(st *State, pnl float64) {
	st.DailyRealizedPnL += pnl
	if !st.DailyLimitBreached && st.DailyRealizedPnL <= -m.cfg.DailyLossLimitPercent*st.DayStartCapital {
		st.DailyLimitBreached = true
	}
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Levels returns the stop-loss, take-profit and initial trailing-stop prices
// of a position entered at entryPrice. Disabled levels are zero.
func (m *Manager) Levels(side domain.PositionSide, entryPrice float64) (stop, target, trailing float64) {
	sign := side.Sign()
	stop = entryPrice * (1 - sign*m.cfg.StopLossPercent)
	if m.cfg.TakeProfitPercent > 0 {
		target = entryPrice * (1 + sign*m.cfg.TakeProfitPercent)
	}
	if m.cfg.UseTrailingStop {
		trailing = entryPrice * (1 - sign*m.cfg.TrailingStopPercent)
	}
	return stop, target, trailing
}

// ApproveEntry checks a proposed entry against the position limit, the daily
// loss limit, the circuit breaker and available capital, in that order. It
// returns the sized approval, or a non-nil Rejection.
func (m *Manager) ApproveEntry(req EntryRequest, snap portfolio.Snapshot, st *State) (Approval, *Rejection) {
	if snap.OpenCount() >= m.cfg.MaxConcurrentPositions {
		return Approval{}, &Rejection{
			Reason: RejectMaxPositions,
			Detail: fmt.Sprintf("%d open, limit %d", snap.OpenCount(), m.cfg.MaxConcurrentPositions),
		}
	}
	if st.DailyLimitBreached {
		return Approval{}, &Rejection{
			Reason: RejectDailyLossLimit,
			Detail: fmt.Sprintf("daily pnl %.2f on %s", st.DailyRealizedPnL, st.CurrentTradingDay),
		}
	}
	if st.CircuitBreakerActive {
		return Approval{}, &Rejection{Reason: RejectCircuitBreaker}
	}
	if req.EntryPrice <= 0 || math.IsNaN(req.EntryPrice) {
		return Approval{}, &Rejection{Reason: RejectInsufficientCapital, Detail: "no usable entry price"}
	}

	stop, target, trailing := m.Levels(req.Side, req.EntryPrice)
	qty, ok := m.sizer.Size(SizeRequest{
		Equity:        snap.Equity,
		AvailableCash: snap.AvailableCash,
		EntryPrice:    req.EntryPrice,
		StopLossPrice: stop,
		ATR:           req.ATR,
	})
	if !ok {
		return Approval{}, &Rejection{
			Reason: RejectInsufficientCapital,
			Detail: fmt.Sprintf("available cash %.2f", snap.AvailableCash),
		}
	}

	return Approval{
		Quantity:          qty,
		EntryPrice:        req.EntryPrice,
		StopLossPrice:     stop,
		TakeProfitPrice:   target,
		TrailingStopPrice: trailing,
	}, nil
}

// ---------------------------------------------------------------------------
// Exits
// ---------------------------------------------------------------------------

// CheckExit evaluates the exit conditions of pos on bar in the order forced
// close, stop loss, take profit, trailing stop, strategy signal, and returns
// the first one that fires.
//
// Stop and trailing-stop fills take the worse of the bar open and the level,
// so gaps through the level fill at the open. Take-profit fills are capped at
// the target. Forced and signal exits fill at the close.
func (m *Manager) CheckExit(pos domain.Position, bar domain.Bar, st *State, sig domain.Signal) (Exit, bool) {
	long := pos.Side == domain.PositionSideLong

	if m.cfg.ForceCloseOnDailyLimit && st.DailyLimitBreached {
		return Exit{Reason: domain.ExitReasonDailyLimitForcedClose, Price: bar.Close}, true
	}

	if price, hit := stopFill(long, pos.StopLossPrice, bar); hit {
		return Exit{Reason: domain.ExitReasonStopLoss, Price: price}, true
	}

	if pos.TakeProfitPrice > 0 {
		if (long && bar.High >= pos.TakeProfitPrice) || (!long && bar.Low <= pos.TakeProfitPrice) {
			return Exit{Reason: domain.ExitReasonTakeProfit, Price: pos.TakeProfitPrice}, true
		}
	}

	if m.cfg.UseTrailingStop && pos.TrailingStopPrice > 0 {
		if price, hit := stopFill(long, pos.TrailingStopPrice, bar); hit {
			return Exit{Reason: domain.ExitReasonTrailingStop, Price: price}, true
		}
	}

	if (long && sig == domain.SignalSell) || (!long && sig == domain.SignalBuy) {
		return Exit{Reason: domain.ExitReasonSignal, Price: bar.Close}, true
	}

	return Exit{}, false
}

// stopFill reports whether a protective level was crossed on bar and the fill
// price: the worse of the open and the level.
func stopFill(long bool, level float64, bar domain.Bar) (float64, bool) {
	if level <= 0 {
		return 0, false
	}
	if long {
		if bar.Low <= level {
			return math.Min(bar.Open, level), true
		}
		return 0, false
	}
	if bar.High >= level {
		return math.Max(bar.Open, level), true
	}
	return 0, false
}

// TrailTo returns the trailing-stop level of pos after observing bar. Longs
// ratchet up from the bar high, shorts down from the bar low; the level never
// loosens. Without a trailing stop it returns the current level.
func (m *Manager) TrailTo(pos domain.Position, bar domain.Bar) float64 {
	if !m.cfg.UseTrailingStop {
		return pos.TrailingStopPrice
	}
	if pos.Side == domain.PositionSideLong {
		return math.Max(pos.TrailingStopPrice, bar.High*(1-m.cfg.TrailingStopPercent))
	}
	candidate := bar.Low * (1 + m.cfg.TrailingStopPercent)
	if pos.TrailingStopPrice <= 0 {
		return candidate
	}
	return math.Min(pos.TrailingStopPrice, candidate)
}
