package broker

import (
	"fmt"
	"math"

	"vantage/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*Simulator)(nil)

// Simulator fills orders against historical bars. Prices move against the
// trader by slippageRate and every fill pays commissionRate of its notional.
type Simulator struct {
	commissionRate float64
	slippageRate   float64
}

// NewSimulator creates a Simulator with the given rates, both fractions.
func NewSimulator(commissionRate, slippageRate float64) *Simulator {
	return &Simulator{
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
	}
}

// Name returns "simulator".
func (s *Simulator) Name() string {
	return "simulator"
}

// Price applies slippage to quote. Buying (long entry, short exit) pays more,
// selling (long exit, short entry) receives less.
func (s *Simulator) Price(action domain.FillAction, side domain.PositionSide, quote float64) float64 {
	buying := (action == domain.FillActionEntry) == (side == domain.PositionSideLong)
	if buying {
		return quote * (1 + s.slippageRate)
	}
	return quote * (1 - s.slippageRate)
}

// Fee returns the commission charged on notional.
func (s *Simulator) Fee(notional float64) float64 {
	return math.Abs(notional) * s.commissionRate
}

// Fill executes req against req.Bar.
func (s *Simulator) Fill(req FillRequest) (Fill, *domain.ExecutionAnomaly) {
	anomaly := func(format string, args ...any) *domain.ExecutionAnomaly {
		return &domain.ExecutionAnomaly{
			Timestamp: req.Bar.Timestamp,
			Symbol:    req.Bar.Symbol,
			Action:    req.Action,
			Reason:    fmt.Sprintf(format, args...),
		}
	}

	if !req.SkipVolumeCheck && req.Bar.Volume <= 0 {
		return Fill{}, anomaly("zero volume bar")
	}
	if req.Quantity <= 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return Fill{}, anomaly("invalid quantity %v", req.Quantity)
	}

	price := s.Price(req.Action, req.Side, req.Quote)
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Fill{}, anomaly("non-positive fill price %v", price)
	}

	return Fill{
		Price:    price,
		Quantity: req.Quantity,
		Fee:      s.Fee(price * req.Quantity),
	}, nil
}
