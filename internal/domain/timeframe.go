package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeUnit is the unit of a bar timeframe.
type TimeUnit string

const (
	UnitMinute TimeUnit = "Min"
	UnitHour   TimeUnit = "Hour"
	UnitDay    TimeUnit = "Day"
	UnitWeek   TimeUnit = "Week"
	UnitMonth  TimeUnit = "Month"
)

// US equity session assumptions used to annualise intraday returns.
const (
	TradingDaysPerYear    = 252
	TradingMinutesPerDay  = 390
	tradingWeeksPerYear   = 52
	tradingMonthsPerYear  = 12
	tradingMinutesPerHour = 60
)

// Timeframe is a bar interval such as 1Day or 15Min.
type Timeframe struct {
	N    int
	Unit TimeUnit
}

// Common timeframes.
var (
	OneMinute = Timeframe{1, UnitMinute}
	OneHour   = Timeframe{1, UnitHour}
	OneDay    = Timeframe{1, UnitDay}
)

// ParseTimeframe parses strings like "1Day", "15Min" or "4Hour". A missing
// count means 1.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		v, err := strconv.Atoi(s[:i])
		if err != nil {
			return Timeframe{}, fmt.Errorf("parsing timeframe %q: %w", s, err)
		}
		n = v
	}
	if n < 1 {
		return Timeframe{}, fmt.Errorf("parsing timeframe %q: count must be >= 1", s)
	}

	switch unit := TimeUnit(s[i:]); unit {
	case UnitMinute, UnitHour, UnitDay, UnitWeek, UnitMonth:
		return Timeframe{N: n, Unit: unit}, nil
	default:
		return Timeframe{}, fmt.Errorf("parsing timeframe %q: unknown unit %q", s, unit)
	}
}

func (tf Timeframe) String() string {
	return strconv.Itoa(tf.N) + string(tf.Unit)
}

// PeriodsPerYear returns how many bars of this timeframe a year of US equity
// sessions holds.
func (tf Timeframe) PeriodsPerYear() float64 {
	n := float64(tf.N)
	if n <= 0 {
		n = 1
	}
	switch tf.Unit {
	case UnitMinute:
		return TradingDaysPerYear * TradingMinutesPerDay / n
	case UnitHour:
		return TradingDaysPerYear * TradingMinutesPerDay / tradingMinutesPerHour / n
	case UnitWeek:
		return tradingWeeksPerYear / n
	case UnitMonth:
		return tradingMonthsPerYear / n
	default:
		return TradingDaysPerYear / n
	}
}
