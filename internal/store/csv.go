package store

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"vantage/internal/domain"
)

// BarCSV is the CSV layout of a bar file. Timestamp accepts RFC 3339,
// "2006-01-02 15:04:05", "2006-01-02" or Unix milliseconds. Symbol may be
// left empty and supplied by the caller.
type BarCSV struct {
	Timestamp  string  `csv:"timestamp"`
	Symbol     string  `csv:"symbol,omitempty"`
	Open       float64 `csv:"open"`
	High       float64 `csv:"high"`
	Low        float64 `csv:"low"`
	Close      float64 `csv:"close"`
	Volume     float64 `csv:"volume"`
	TradeCount int64   `csv:"trade_count,omitempty"`
	VWAP       float64 `csv:"vwap,omitempty"`
}

// TradeCSV is the CSV layout of the trade ledger export.
type TradeCSV struct {
	Symbol     string  `csv:"symbol"`
	Side       string  `csv:"side"`
	EntryTime  string  `csv:"entry_time"`
	ExitTime   string  `csv:"exit_time"`
	EntryPrice float64 `csv:"entry_price"`
	ExitPrice  float64 `csv:"exit_price"`
	Quantity   float64 `csv:"quantity"`
	Fees       float64 `csv:"fees"`
	PnL        float64 `csv:"pnl"`
	PnLPercent float64 `csv:"pnl_percent"`
	ExitReason string  `csv:"exit_reason"`
}

// EquityCSV is the CSV layout of the equity curve export.
type EquityCSV struct {
	Timestamp string  `csv:"timestamp"`
	Equity    float64 `csv:"equity"`
	Cash      float64 `csv:"cash"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ReadBarsCSV decodes bars from r. Rows without a symbol get symbol. Row order
// is preserved; ordering is validated by the engine.
func ReadBarsCSV(r io.Reader, symbol string) ([]domain.Bar, error) {
	var rows []*BarCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decoding bars csv: %w", err)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for i, row := range rows {
		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: %w", i+1, err)
		}
		sym := row.Symbol
		if sym == "" {
			sym = symbol
		}
		bars = append(bars, domain.Bar{
			Symbol:     strings.ToUpper(sym),
			Timestamp:  ts,
			Open:       row.Open,
			High:       row.High,
			Low:        row.Low,
			Close:      row.Close,
			Volume:     row.Volume,
			TradeCount: row.TradeCount,
			VWAP:       row.VWAP,
		})
	}
	return bars, nil
}

// LoadBarsCSV reads a bar CSV file from path.
func LoadBarsCSV(path, symbol string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBarsCSV(f, symbol)
}

// WriteBarsCSV encodes bars to w.
func WriteBarsCSV(w io.Writer, bars []domain.Bar) error {
	rows := make([]*BarCSV, len(bars))
	for i, b := range bars {
		rows[i] = &BarCSV{
			Timestamp:  b.Timestamp.UTC().Format(time.RFC3339),
			Symbol:     b.Symbol,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		}
	}
	return gocsv.Marshal(&rows, w)
}

// WriteTradesCSV encodes the trade ledger to w.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	rows := make([]*TradeCSV, len(trades))
	for i, t := range trades {
		rows[i] = &TradeCSV{
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			EntryTime:  t.EntryTime.UTC().Format(time.RFC3339),
			ExitTime:   t.ExitTime.UTC().Format(time.RFC3339),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Quantity:   t.Quantity,
			Fees:       t.Fees,
			PnL:        t.PnL,
			PnLPercent: t.PnLPercent,
			ExitReason: string(t.ExitReason),
		}
	}
	return gocsv.Marshal(&rows, w)
}

// WriteEquityCSV encodes the equity curve to w.
func WriteEquityCSV(w io.Writer, points []domain.EquityPoint) error {
	rows := make([]*EquityCSV, len(points))
	for i, p := range points {
		rows[i] = &EquityCSV{
			Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
			Equity:    p.Equity,
			Cash:      p.Cash,
		}
	}
	return gocsv.Marshal(&rows, w)
}

// ExportCSV writes the ledger and equity curve of a run to two files.
// Empty paths are skipped.
func ExportCSV(tradesPath, equityPath string, trades []domain.Trade, points []domain.EquityPoint) error {
	if tradesPath != "" {
		if err := writeFile(tradesPath, func(w io.Writer) error { return WriteTradesCSV(w, trades) }); err != nil {
			return fmt.Errorf("exporting trades: %w", err)
		}
	}
	if equityPath != "" {
		if err := writeFile(equityPath, func(w io.Writer) error { return WriteEquityCSV(w, points) }); err != nil {
			return fmt.Errorf("exporting equity: %w", err)
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
