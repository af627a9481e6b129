package risk

// CircuitBreaker freezes new entries while bar-to-bar volatility is abnormal.
// It compares each bar's true range with the mean true range of the preceding
// lookback bars; the breaker trips when the ratio exceeds multiple and resets
// after cooldown consecutive calm bars.
type CircuitBreaker struct {
	enabled  bool
	multiple float64
	lookback int
	cooldown int

	window []float64
	next   int
	filled int
	sum    float64

	active   bool
	calmBars int
}

// NewCircuitBreaker creates a breaker from the circuit-breaker fields of cfg.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{
		enabled:  cfg.EnableCircuitBreaker,
		multiple: cfg.CircuitBreakerMultiple,
		lookback: cfg.CircuitBreakerLookback,
		cooldown: cfg.CircuitBreakerCooldownBars,
	}
	if cb.enabled {
		cb.window = make([]float64, cb.lookback)
	}
	return cb
}

// Observe feeds the true range of the current bar and returns whether the
// breaker is active afterwards. It never trips before lookback bars have been
// observed.
func (cb *CircuitBreaker) Observe(trueRange float64) bool {
	if !cb.enabled {
		return false
	}

	if cb.filled == cb.lookback {
		avg := cb.sum / float64(cb.lookback)
		if avg > 0 && trueRange > cb.multiple*avg {
			cb.active = true
			cb.calmBars = 0
		} else if cb.active {
			cb.calmBars++
			if cb.calmBars >= cb.cooldown {
				cb.active = false
				cb.calmBars = 0
			}
		}
	}

	if cb.filled == cb.lookback {
		cb.sum -= cb.window[cb.next]
	} else {
		cb.filled++
	}
	cb.window[cb.next] = trueRange
	cb.sum += trueRange
	cb.next = (cb.next + 1) % cb.lookback

	return cb.active
}

// Active reports whether new entries are currently frozen.
func (cb *CircuitBreaker) Active() bool {
	return cb.active
}
