package risk

// State is the mutable risk bookkeeping of exactly one run. It is created by
// Manager.NewState, mutated only through Manager methods and never shared
// between runs.
type State struct {
	CurrentTradingDay    string
	DayStartCapital      float64
	DailyRealizedPnL     float64
	DailyLimitBreached   bool
	CircuitBreakerActive bool
	OpenPositionCount    int

	breaker *CircuitBreaker
}

// RejectReason names why an entry was refused.
type RejectReason string

const (
	RejectMaxPositions        RejectReason = "max_positions_reached"
	RejectDailyLossLimit      RejectReason = "daily_loss_limit_breached"
	RejectCircuitBreaker      RejectReason = "circuit_breaker_active"
	RejectInsufficientCapital RejectReason = "insufficient_capital"
)

// Rejection is the controlled outcome of a refused entry. It is not an error:
// the engine skips the entry and continues.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}
