// Package domain defines the core value types shared across the backtester:
// bars, signals, positions, trades and equity points.
package domain

import "time"

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one OHLCV sample for a fixed time interval.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	VWAP       float64
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Signal is the per-bar output of a strategy.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Normalize maps unknown or empty signals to SignalHold.
func (s Signal) Normalize() Signal {
	switch s {
	case SignalBuy, SignalSell:
		return s
	default:
		return SignalHold
	}
}

// ---------------------------------------------------------------------------
// Positions and trades
// ---------------------------------------------------------------------------

// PositionSide is the direction of a position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Sign returns +1 for long and -1 for short.
func (s PositionSide) Sign() float64 {
	if s == PositionSideShort {
		return -1
	}
	return 1
}

// SideForSignal returns the position side opened by an entry signal. The second
// return value is false for hold.
func SideForSignal(s Signal) (PositionSide, bool) {
	switch s {
	case SignalBuy:
		return PositionSideLong, true
	case SignalSell:
		return PositionSideShort, true
	default:
		return "", false
	}
}

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is an open exposure in one symbol. TakeProfitPrice and
// TrailingStopPrice are zero when disabled or not yet set.
type Position struct {
	Symbol            string
	Side              PositionSide
	EntryPrice        float64
	Quantity          float64
	EntryTime         time.Time
	EntryFee          float64
	StopLossPrice     float64
	TakeProfitPrice   float64
	TrailingStopPrice float64
	UnrealizedPnL     float64
	Status            PositionStatus
}

// Notional returns the entry value of the position.
func (p Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

// PnLAt returns the gross profit the position would realise at price.
func (p Position) PnLAt(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Side.Sign()
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonSignal                ExitReason = "signal"
	ExitReasonStopLoss              ExitReason = "stop_loss"
	ExitReasonTakeProfit            ExitReason = "take_profit"
	ExitReasonTrailingStop          ExitReason = "trailing_stop"
	ExitReasonDailyLimitForcedClose ExitReason = "daily_limit_forced_close"
)

// Trade is the immutable record of a closed position.
type Trade struct {
	Symbol     string
	Side       PositionSide
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	EntryTime  time.Time
	ExitTime   time.Time
	Fees       float64
	PnL        float64
	PnLPercent float64 // pnl relative to entry notional, in percent
	ExitReason ExitReason
}

// Duration returns the holding time of the trade.
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint is the marked account value at the close of one bar.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
	Cash      float64
}

// ---------------------------------------------------------------------------
// Execution anomalies
// ---------------------------------------------------------------------------

// FillAction distinguishes entry fills from exit fills.
type FillAction string

const (
	FillActionEntry FillAction = "entry"
	FillActionExit  FillAction = "exit"
)

// ExecutionAnomaly records a fill that was skipped because its price or the
// bar it would execute on was unusable. The run continues.
type ExecutionAnomaly struct {
	Timestamp time.Time
	Symbol    string
	Action    FillAction
	Reason    string
}
