// Package report renders backtest results for the terminal and converts
// performance reports to and from the flat metric maps kept in the results
// database.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vantage/internal/domain"
	"vantage/internal/performance"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(28)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Align(lipgloss.Right).Width(14)
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Align(lipgloss.Right).Width(14)
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Align(lipgloss.Right).Width(14)
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

// Header identifies the run a report belongs to.
type Header struct {
	RunID     string
	Strategy  string
	Symbol    string
	Timeframe string
	Start     time.Time
	End       time.Time
}

// Render formats r as a boxed two-column summary under a title line built
// from h. rejections may be nil.
func Render(h Header, r performance.Report, rejections map[string]int) string {
	row := func(label, value string, style lipgloss.Style) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), style.Render(value))
	}
	signed := func(v float64) lipgloss.Style {
		switch {
		case v > 0:
			return gainStyle
		case v < 0:
			return lossStyle
		}
		return valueStyle
	}

	returns := []string{
		headStyle.Render("Returns"),
		row("Initial capital", FormatMoney(r.InitialCapital), valueStyle),
		row("Final equity", FormatMoney(r.FinalEquity), valueStyle),
		row("Total pnl", FormatMoney(r.TotalPnL), signed(r.TotalPnL)),
		row("Total fees", FormatMoney(r.TotalFees), valueStyle),
		row("Total return", FormatPct(r.TotalReturn), signed(r.TotalReturn)),
		row("Annualized return", FormatPct(r.AnnualizedReturn), signed(r.AnnualizedReturn)),
		row("Sharpe ratio", FormatRatio(r.SharpeRatio), valueStyle),
		row("Sortino ratio", FormatRatio(r.SortinoRatio), valueStyle),
		row("Max drawdown", FormatPct(r.MaxDrawdown), signed(r.MaxDrawdown)),
		row("Max drawdown $", FormatMoney(r.MaxDrawdownCurrency), signed(r.MaxDrawdownCurrency)),
		row("Calmar ratio", FormatRatio(r.CalmarRatio), valueStyle),
		row("Recovery factor", FormatRatio(r.RecoveryFactor), valueStyle),
	}
	trades := []string{
		headStyle.Render("Trades"),
		row("Total trades", FormatInt(r.TotalTrades), valueStyle),
		row("Winning / losing", fmt.Sprintf("%d / %d", r.WinningTrades, r.LosingTrades), valueStyle),
		row("Win rate", fmt.Sprintf("%.1f%%", r.WinRate*100), valueStyle),
		row("Profit factor", FormatRatio(r.ProfitFactor), valueStyle),
		row("Expectancy", FormatMoney(r.Expectancy), signed(r.Expectancy)),
		row("Avg win", FormatMoney(r.AvgWin), signed(r.AvgWin)),
		row("Avg loss", FormatMoney(r.AvgLoss), signed(r.AvgLoss)),
		row("Largest win", FormatMoney(r.LargestWin), signed(r.LargestWin)),
		row("Largest loss", FormatMoney(r.LargestLoss), signed(r.LargestLoss)),
		row("Avg duration", FormatDuration(r.AvgTradeDuration), valueStyle),
		row("Return periods", FormatInt(r.Periods), valueStyle),
	}
	if len(rejections) > 0 {
		trades = append(trades, "", headStyle.Render("Rejected entries"))
		reasons := make([]string, 0, len(rejections))
		for reason := range rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			trades = append(trades, row(reason, FormatInt(rejections[reason]), valueStyle))
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(returns, "\n"),
		"    ",
		strings.Join(trades, "\n"),
	)
	return titleStyle.Render(title(h)) + "\n" + boxStyle.Render(body) + "\n"
}

func title(h Header) string {
	parts := []string{h.Strategy, h.Symbol, h.Timeframe}
	if !h.Start.IsZero() && !h.End.IsZero() {
		parts = append(parts, h.Start.Format("2006-01-02")+" to "+h.End.Format("2006-01-02"))
	}
	if h.RunID != "" {
		parts = append(parts, h.RunID)
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "  ")
}

// RenderTrades formats the trade ledger as a table, at most limit rows
// (limit <= 0 shows all).
func RenderTrades(trades []domain.Trade, limit int) string {
	if limit <= 0 || limit > len(trades) {
		limit = len(trades)
	}
	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("%-6s %-5s %-16s %-16s %10s %10s %10s %10s  %s",
		"SYMBOL", "SIDE", "ENTRY", "EXIT", "QTY", "ENTRY PX", "EXIT PX", "PNL", "REASON")))
	b.WriteByte('\n')
	for _, t := range trades[:limit] {
		pnl := FormatMoney(t.PnL)
		switch {
		case t.PnL > 0:
			pnl = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(fmt.Sprintf("%10s", pnl))
		case t.PnL < 0:
			pnl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(fmt.Sprintf("%10s", pnl))
		default:
			pnl = fmt.Sprintf("%10s", pnl)
		}
		fmt.Fprintf(&b, "%-6s %-5s %-16s %-16s %10.2f %10.2f %10.2f %s  %s\n",
			t.Symbol, t.Side,
			t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
			t.Quantity, t.EntryPrice, t.ExitPrice, pnl, t.ExitReason)
	}
	if limit < len(trades) {
		fmt.Fprintf(&b, "... %d more\n", len(trades)-limit)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Metric maps
// ---------------------------------------------------------------------------

// Metric names used by ToMap and FromMap.
const (
	MetricInitialCapital   = "initial_capital"
	MetricFinalEquity      = "final_equity"
	MetricTotalPnL         = "total_pnl"
	MetricTotalFees        = "total_fees"
	MetricTotalReturn      = "total_return"
	MetricAnnualizedReturn = "annualized_return"
	MetricTotalTrades      = "total_trades"
	MetricWinningTrades    = "winning_trades"
	MetricLosingTrades     = "losing_trades"
	MetricWinRate          = "win_rate"
	MetricProfitFactor     = "profit_factor"
	MetricExpectancy       = "expectancy"
	MetricAvgWin           = "avg_win"
	MetricAvgLoss          = "avg_loss"
	MetricLargestWin       = "largest_win"
	MetricLargestLoss      = "largest_loss"
	MetricSharpeRatio      = "sharpe_ratio"
	MetricSortinoRatio     = "sortino_ratio"
	MetricMaxDrawdown      = "max_drawdown"
	MetricMaxDrawdownCcy   = "max_drawdown_currency"
	MetricCalmarRatio      = "calmar_ratio"
	MetricRecoveryFactor   = "recovery_factor"
	MetricAvgTradeSeconds  = "avg_trade_seconds"
	MetricPeriods          = "periods"
)

// ToMap flattens r into named metrics. An infinite profit factor is stored
// as math.MaxFloat64 so the map stays storable as REAL.
func ToMap(r performance.Report) map[string]float64 {
	pf := r.ProfitFactor
	if math.IsInf(pf, 1) {
		pf = math.MaxFloat64
	}
	return map[string]float64{
		MetricInitialCapital:   r.InitialCapital,
		MetricFinalEquity:      r.FinalEquity,
		MetricTotalPnL:         r.TotalPnL,
		MetricTotalFees:        r.TotalFees,
		MetricTotalReturn:      r.TotalReturn,
		MetricAnnualizedReturn: r.AnnualizedReturn,
		MetricTotalTrades:      float64(r.TotalTrades),
		MetricWinningTrades:    float64(r.WinningTrades),
		MetricLosingTrades:     float64(r.LosingTrades),
		MetricWinRate:          r.WinRate,
		MetricProfitFactor:     pf,
		MetricExpectancy:       r.Expectancy,
		MetricAvgWin:           r.AvgWin,
		MetricAvgLoss:          r.AvgLoss,
		MetricLargestWin:       r.LargestWin,
		MetricLargestLoss:      r.LargestLoss,
		MetricSharpeRatio:      r.SharpeRatio,
		MetricSortinoRatio:     r.SortinoRatio,
		MetricMaxDrawdown:      r.MaxDrawdown,
		MetricMaxDrawdownCcy:   r.MaxDrawdownCurrency,
		MetricCalmarRatio:      r.CalmarRatio,
		MetricRecoveryFactor:   r.RecoveryFactor,
		MetricAvgTradeSeconds:  r.AvgTradeDuration.Seconds(),
		MetricPeriods:          float64(r.Periods),
	}
}

// FromMap rebuilds a report from metrics written by ToMap. Missing metrics
// are left zero.
func FromMap(m map[string]float64) performance.Report {
	pf := m[MetricProfitFactor]
	if pf == math.MaxFloat64 {
		pf = math.Inf(1)
	}
	return performance.Report{
		InitialCapital:      m[MetricInitialCapital],
		FinalEquity:         m[MetricFinalEquity],
		TotalPnL:            m[MetricTotalPnL],
		TotalFees:           m[MetricTotalFees],
		TotalReturn:         m[MetricTotalReturn],
		AnnualizedReturn:    m[MetricAnnualizedReturn],
		TotalTrades:         int(m[MetricTotalTrades]),
		WinningTrades:       int(m[MetricWinningTrades]),
		LosingTrades:        int(m[MetricLosingTrades]),
		WinRate:             m[MetricWinRate],
		ProfitFactor:        pf,
		Expectancy:          m[MetricExpectancy],
		AvgWin:              m[MetricAvgWin],
		AvgLoss:             m[MetricAvgLoss],
		LargestWin:          m[MetricLargestWin],
		LargestLoss:         m[MetricLargestLoss],
		SharpeRatio:         m[MetricSharpeRatio],
		SortinoRatio:        m[MetricSortinoRatio],
		MaxDrawdown:         m[MetricMaxDrawdown],
		MaxDrawdownCurrency: m[MetricMaxDrawdownCcy],
		CalmarRatio:         m[MetricCalmarRatio],
		RecoveryFactor:      m[MetricRecoveryFactor],
		AvgTradeDuration:    time.Duration(m[MetricAvgTradeSeconds] * float64(time.Second)),
		Periods:             int(m[MetricPeriods]),
	}
}
