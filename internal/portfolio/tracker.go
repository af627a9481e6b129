// Package portfolio tracks cash and open positions for a single backtest run
// and converts closed positions into immutable trades.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"vantage/internal/domain"
)

var (
	// ErrPositionExists is returned when opening a second position in a symbol.
	ErrPositionExists = errors.New("position already open")

	// ErrNoPosition is returned when closing or updating an unknown symbol.
	ErrNoPosition = errors.New("no open position")
)

// Snapshot is a read-only copy of the portfolio at one point in time.
type Snapshot struct {
	Cash          float64
	Equity        float64
	AvailableCash float64
	Positions     []domain.Position // sorted by symbol
}

// OpenCount returns the number of open positions in the snapshot.
func (s Snapshot) OpenCount() int {
	return len(s.Positions)
}

// Tracker owns cash and open positions. Positions are held with margin-style
// accounting: opening a position only deducts the entry fee, and closing it
// credits the gross pnl minus the exit fee, so that equity is always cash plus
// the unrealised pnl of open positions.
type Tracker struct {
	cash      float64
	positions map[string]*domain.Position
}

// NewTracker creates a Tracker holding initialCash and no positions.
func NewTracker(initialCash float64) *Tracker {
	return &Tracker{
		cash:      initialCash,
		positions: make(map[string]*domain.Position),
	}
}

// Cash returns the current cash balance.
func (t *Tracker) Cash() float64 {
	return t.cash
}

// Has reports whether symbol has an open position.
func (t *Tracker) Has(symbol string) bool {
	_, ok := t.positions[symbol]
	return ok
}

// Position returns a copy of the open position in symbol.
func (t *Tracker) Position(symbol string) (domain.Position, bool) {
	p, ok := t.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// OpenCount returns the number of open positions.
func (t *Tracker) OpenCount() int {
	return len(t.positions)
}

// Symbols returns the symbols with open positions in sorted order.
func (t *Tracker) Symbols() []string {
	symbols := make([]string, 0, len(t.positions))
	for s := range t.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Open adds a position and deducts its entry fee from cash.
func (t *Tracker) Open(pos domain.Position) error {
	if t.Has(pos.Symbol) {
		return fmt.Errorf("opening %s: %w", pos.Symbol, ErrPositionExists)
	}
	if pos.Quantity <= 0 {
		return fmt.Errorf("opening %s: quantity must be positive, got %v", pos.Symbol, pos.Quantity)
	}
	pos.Status = domain.PositionStatusOpen
	pos.UnrealizedPnL = 0
	t.positions[pos.Symbol] = &pos
	t.cash -= pos.EntryFee
	return nil
}

// Close removes the position in symbol and returns the resulting trade.
// exitPrice is the filled price and exitFee the commission charged on exit.
func (t *Tracker) Close(symbol string, exitPrice, exitFee float64, exitTime time.Time, reason domain.ExitReason) (domain.Trade, error) {
	p, ok := t.positions[symbol]
	if !ok {
		return domain.Trade{}, fmt.Errorf("closing %s: %w", symbol, ErrNoPosition)
	}
	if !exitTime.After(p.EntryTime) {
		return domain.Trade{}, fmt.Errorf("closing %s: exit time %s not after entry time %s", symbol, exitTime, p.EntryTime)
	}

	gross := p.PnLAt(exitPrice)
	fees := p.EntryFee + exitFee
	pnl := gross - fees

	var pnlPct float64
	if n := p.Notional(); n > 0 {
		pnlPct = pnl / n * 100
	}

	t.cash += gross - exitFee
	delete(t.positions, symbol)

	return domain.Trade{
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   p.Quantity,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		Fees:       fees,
		PnL:        pnl,
		PnLPercent: pnlPct,
		ExitReason: reason,
	}, nil
}

// MarkToMarket revalues the position in symbol at price. Unknown symbols are
// ignored.
func (t *Tracker) MarkToMarket(symbol string, price float64) {
	if p, ok := t.positions[symbol]; ok {
		p.UnrealizedPnL = p.PnLAt(price)
	}
}

// SetTrailingStop records a new trailing-stop level for symbol.
func (t *Tracker) SetTrailingStop(symbol string, price float64) error {
	p, ok := t.positions[symbol]
	if !ok {
		return fmt.Errorf("trailing stop for %s: %w", symbol, ErrNoPosition)
	}
	p.TrailingStopPrice = price
	return nil
}

// UnrealizedPnL returns the summed unrealised pnl at the last marks.
func (t *Tracker) UnrealizedPnL() float64 {
	var sum float64
	for _, s := range t.Symbols() {
		sum += t.positions[s].UnrealizedPnL
	}
	return sum
}

// Equity returns cash plus unrealised pnl at the last marks.
func (t *Tracker) Equity() float64 {
	return t.cash + t.UnrealizedPnL()
}

// AvailableCash returns cash not committed to open positions' entry notional.
func (t *Tracker) AvailableCash() float64 {
	committed := 0.0
	for _, s := range t.Symbols() {
		committed += t.positions[s].Notional()
	}
	return t.cash - committed
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	symbols := t.Symbols()
	positions := make([]domain.Position, 0, len(symbols))
	for _, s := range symbols {
		positions = append(positions, *t.positions[s])
	}
	return Snapshot{
		Cash:          t.cash,
		Equity:        t.Equity(),
		AvailableCash: t.AvailableCash(),
		Positions:     positions,
	}
}
