// Package performance computes the summary statistics of a finished run from
// its trade ledger and equity curve.
package performance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"vantage/internal/domain"
)

// Report is the flat set of metrics of one run. Undefined ratios are 0;
// ProfitFactor is +Inf when there are winners and no losers. Fractions are
// not scaled: a TotalReturn of 0.05 means 5%.
type Report struct {
	InitialCapital float64
	FinalEquity    float64
	TotalPnL       float64
	TotalFees      float64

	TotalReturn      float64
	AnnualizedReturn float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64
	Expectancy    float64
	AvgWin        float64
	AvgLoss       float64
	LargestWin    float64
	LargestLoss   float64

	SharpeRatio  float64
	SortinoRatio float64

	MaxDrawdown         float64 // fraction, <= 0
	MaxDrawdownCurrency float64 // <= 0
	CalmarRatio         float64
	RecoveryFactor      float64

	AvgTradeDuration time.Duration
	Periods          int
}

// Calculate derives a Report. It is a pure function: trades and equity are
// only read. With an empty equity curve the final equity is initialCapital.
func Calculate(trades []domain.Trade, equity []domain.EquityPoint, initialCapital, periodsPerYear float64) Report {
	r := Report{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
	}
	if len(equity) > 0 {
		r.FinalEquity = equity[len(equity)-1].Equity
	}
	if initialCapital > 0 {
		r.TotalReturn = r.FinalEquity/initialCapital - 1
	}

	tradeStats(&r, trades)

	returns := Returns(equity)
	r.Periods = len(returns)
	r.SharpeRatio, r.SortinoRatio = riskAdjusted(returns, periodsPerYear)
	r.AnnualizedReturn = annualize(r.FinalEquity, initialCapital, periodsPerYear, len(returns))

	r.MaxDrawdown, r.MaxDrawdownCurrency = MaxDrawdown(equity)
	if r.MaxDrawdown < 0 {
		r.CalmarRatio = r.AnnualizedReturn / math.Abs(r.MaxDrawdown)
	}
	if r.MaxDrawdownCurrency < 0 {
		r.RecoveryFactor = r.TotalPnL / math.Abs(r.MaxDrawdownCurrency)
	}
	return r
}

func tradeStats(r *Report, trades []domain.Trade) {
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var grossWin, grossLoss float64
	var duration time.Duration
	for _, t := range trades {
		r.TotalPnL += t.PnL
		r.TotalFees += t.Fees
		duration += t.Duration()

		switch {
		case t.PnL > 0:
			r.WinningTrades++
			grossWin += t.PnL
			r.LargestWin = math.Max(r.LargestWin, t.PnL)
		case t.PnL < 0:
			r.LosingTrades++
			grossLoss += t.PnL
			r.LargestLoss = math.Min(r.LargestLoss, t.PnL)
		}
	}

	n := float64(len(trades))
	r.WinRate = float64(r.WinningTrades) / n
	r.Expectancy = r.TotalPnL / n
	r.AvgTradeDuration = duration / time.Duration(len(trades))
	if r.WinningTrades > 0 {
		r.AvgWin = grossWin / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}
	r.ProfitFactor = ProfitFactor(grossWin, grossLoss, r.WinningTrades)
}

// ProfitFactor returns grossWin / |grossLoss|, +Inf with winners but no
// losses, and 0 when nothing was won.
func ProfitFactor(grossWin, grossLoss float64, winners int) float64 {
	if grossLoss == 0 {
		if winners > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWin / math.Abs(grossLoss)
}

// Returns computes per-period simple returns of consecutive equity points.
// Periods starting from non-positive equity are skipped.
func Returns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

// riskAdjusted returns the annualised Sharpe and Sortino ratios. Both use
// sample standard deviations and are 0 when fewer than two observations are
// available or the deviation is zero.
func riskAdjusted(returns []float64, periodsPerYear float64) (sharpe, sortino float64) {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0, 0
	}
	scale := math.Sqrt(periodsPerYear)

	mean, std := stat.MeanStdDev(returns, nil)
	if std > 0 && !math.IsNaN(std) {
		sharpe = mean / std * scale
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) >= 2 {
		if dd := stat.StdDev(downside, nil); dd > 0 && !math.IsNaN(dd) {
			sortino = mean / dd * scale
		}
	}
	return sharpe, sortino
}

func annualize(final, initial, periodsPerYear float64, periods int) float64 {
	if initial <= 0 || periods == 0 || periodsPerYear <= 0 {
		return 0
	}
	growth := final / initial
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, periodsPerYear/float64(periods)) - 1
}

// MaxDrawdown returns the deepest decline from a running peak of the curve as
// a fraction of that peak and in currency. Both are <= 0.
func MaxDrawdown(equity []domain.EquityPoint) (fraction, currency float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	peak := equity[0].Equity
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := p.Equity - peak
		if dd < currency {
			currency = dd
		}
		if f := dd / peak; f < fraction {
			fraction = f
		}
	}
	return fraction, currency
}
