// Package broker defines the Broker interface and the simulated execution
// used by backtests: slippage, commission and fill sanity checks.
package broker

import (
	"vantage/internal/domain"
)

// FillRequest asks for one fill. Quote is the reference price before
// slippage (bar close, stop level or target). Bar is the bar the fill happens
// on.
type FillRequest struct {
	Action   domain.FillAction
	Side     domain.PositionSide
	Quote    float64
	Quantity float64
	Bar      domain.Bar

	// SkipVolumeCheck allows fills on zero-volume bars. Used for the final
	// liquidation, which must close every position.
	SkipVolumeCheck bool
}

// Fill is an executed fill.
type Fill struct {
	Price    float64
	Quantity float64
	Fee      float64
}

// Notional returns price times quantity.
func (f Fill) Notional() float64 {
	return f.Price * f.Quantity
}

// Broker abstracts order execution.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator").
	Name() string

	// Price returns the slippage-adjusted price for a fill without checking
	// the bar. Used to size entries before they are filled.
	Price(action domain.FillAction, side domain.PositionSide, quote float64) float64

	// Fill executes req. A non-nil anomaly means the fill was refused and
	// nothing happened.
	Fill(req FillRequest) (Fill, *domain.ExecutionAnomaly)
}
