package domain

import (
	"math"
	"time"
)

// ValidateBars checks that bars form a usable series for a single symbol:
// non-empty, strictly ascending timestamps and well-formed, positive OHLC.
// Gaps between timestamps are permitted.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return &DataError{Index: -1, Reason: "empty bar sequence"}
	}

	symbol := bars[0].Symbol
	var prev time.Time
	for i, b := range bars {
		if b.Symbol != symbol {
			return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "mixed symbols " + symbol + " and " + b.Symbol}
		}
		if i > 0 && !b.Timestamp.After(prev) {
			return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "timestamps not strictly ascending"}
		}
		prev = b.Timestamp

		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "non-positive or non-finite price"}
			}
		}
		if b.Low > b.High {
			return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "low above high"}
		}
		if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
			return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "open/close outside low-high range"}
		}
		if b.Volume < 0 || math.IsNaN(b.Volume) {
			return &DataError{Index: i, Timestamp: b.Timestamp, Reason: "negative volume"}
		}
	}
	return nil
}
