package engine

import (
	"github.com/markcheno/go-talib"

	"vantage/internal/domain"
)

// indicators are the per-bar series the risk manager needs. Value i depends
// only on bars[0..i].
type indicators struct {
	trueRange []float64
	atr       []float64 // zero during warm-up
}

func computeIndicators(bars []domain.Bar, atrPeriod int) indicators {
	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
	}

	tr := talib.TRange(high, low, closes)
	if n > 0 {
		// TRange leaves the first bar empty: it has no previous close.
		tr[0] = high[0] - low[0]
	}

	atr := make([]float64, n)
	if atrPeriod > 0 && n > atrPeriod {
		atr = talib.Atr(high, low, closes, atrPeriod)
	}

	return indicators{trueRange: tr, atr: atr}
}
