package builtins

import (
	"vantage/internal/domain"
	"vantage/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = BuyAndHold{}

// BuyAndHold buys on every bar. With one position per symbol this enters on
// the first bar and holds until a risk exit or the end of the run; it is the
// usual benchmark for the other strategies.
type BuyAndHold struct{}

// Name returns "buy-and-hold".
func (BuyAndHold) Name() string {
	return "buy-and-hold"
}

// Signal always returns buy.
func (BuyAndHold) Signal([]domain.Bar) domain.Signal {
	return domain.SignalBuy
}
