package risk

import (
	"math"
)

// SizeRequest carries the inputs of one sizing decision. ATR is zero when the
// indicator is still warming up.
type SizeRequest struct {
	Equity        float64
	AvailableCash float64
	EntryPrice    float64
	StopLossPrice float64
	ATR           float64
}

// Sizer converts a per-trade risk budget into a tradable quantity.
type Sizer struct {
	method         SizingMethod
	riskPct        float64
	atrMultiple    float64
	maxPositionPct float64
	commissionRate float64
	minNotional    float64
}

// NewSizer creates a Sizer from the sizing fields of cfg.
func NewSizer(cfg Config) Sizer {
	return Sizer{
		method:         cfg.SizingMethod,
		riskPct:        cfg.RiskPctPerTrade,
		atrMultiple:    cfg.ATRMultiple,
		maxPositionPct: cfg.MaxPositionSizePercent,
		commissionRate: cfg.CommissionRate,
		minNotional:    cfg.MinNotional,
	}
}

// RiskQuantity returns the unclamped quantity whose loss at the stop (or at
// atr_multiple ATRs for volatility sizing) equals equity × risk_pct. Volatility
// sizing falls back to the stop distance while ATR is unavailable.
func (s Sizer) RiskQuantity(req SizeRequest) float64 {
	budget := req.Equity * s.riskPct
	if budget <= 0 {
		return 0
	}

	var perUnit float64
	if s.method == SizingVolatility && req.ATR > 0 {
		perUnit = s.atrMultiple * req.ATR
	} else {
		perUnit = math.Abs(req.EntryPrice - req.StopLossPrice)
	}
	if perUnit <= 0 || math.IsNaN(perUnit) {
		return 0
	}
	return budget / perUnit
}

// Size returns the quantity to trade after clamping the risk quantity so that
// the position notional stays within max_position_size_percent of available
// cash and the notional plus entry commission stays within available cash.
// ok is false when nothing tradable remains (insufficient capital).
func (s Sizer) Size(req SizeRequest) (qty float64, ok bool) {
	if req.EntryPrice <= 0 || req.AvailableCash <= 0 {
		return 0, false
	}

	qty = s.RiskQuantity(req)

	maxByPct := req.AvailableCash * s.maxPositionPct / req.EntryPrice
	maxByCash := req.AvailableCash / (req.EntryPrice * (1 + s.commissionRate))
	qty = math.Min(qty, math.Min(maxByPct, maxByCash))

	if qty <= 0 || math.IsNaN(qty) {
		return 0, false
	}
	if s.minNotional > 0 && qty*req.EntryPrice < s.minNotional {
		return 0, false
	}
	return qty, true
}
