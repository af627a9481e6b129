package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"vantage/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ EquityStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore and EquityStore using Parquet files on
// disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for bar data.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     float64 `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

// EquityRecord is the Parquet schema for one point of an equity curve.
type EquityRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Equity    float64 `parquet:"equity"`
	Cash      float64 `parquet:"cash"`
}

func toBarRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:     b.Symbol,
		Timestamp:  b.Timestamp.UnixMilli(),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}

func (r BarRecord) bar() domain.Bar {
	return domain.Bar{
		Symbol:     r.Symbol,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		VWAP:       r.VWAP,
	}
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by timeframe, symbol
// and year. Each combination produces a separate file at:
//
//	<DataDir>/bars/<timeframe>/<SYMBOL>/<YYYY>.parquet
//
// Existing files are merged with the new bars.
func (s *ParquetStore) WriteBars(ctx context.Context, tf domain.Timeframe, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: strings.ToUpper(b.Symbol), year: b.Timestamp.UTC().Year()}
		groups[k] = append(groups[k], toBarRecord(b))
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}
		return keys[i].year < keys[j].year
	})

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := s.barPath(k.symbol, tf, k.year)

		existing, err := readParquetFile[BarRecord](path)
		if err != nil {
			return fmt.Errorf("reading existing bars for %s/%d: %w", k.symbol, k.year, err)
		}
		merged := mergeBarRecords(existing, groups[k])

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time
// range. Missing year files are skipped.
func (s *ParquetStore) ReadBars(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := s.barPath(symbol, tf, year)

		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s/%d: %w", symbol, year, err)
		}

		for _, r := range records {
			b := r.bar()
			if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
				bars = append(bars, b)
			}
		}
	}
	return bars, nil
}

// ListSymbols lists all symbols that have bar data of the given timeframe.
func (s *ParquetStore) ListSymbols(_ context.Context, tf domain.Timeframe) ([]string, error) {
	dir := filepath.Join(s.DataDir, "bars", tf.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// EquityStore implementation
// ---------------------------------------------------------------------------

// WriteEquity writes the equity curve of a run to
// <DataDir>/equity/<runID>.parquet, replacing any earlier file.
func (s *ParquetStore) WriteEquity(_ context.Context, runID string, points []domain.EquityPoint) error {
	if runID == "" {
		return errors.New("writing equity: empty run id")
	}
	records := make([]EquityRecord, len(points))
	for i, p := range points {
		records[i] = EquityRecord{
			Timestamp: p.Timestamp.UnixMilli(),
			Equity:    p.Equity,
			Cash:      p.Cash,
		}
	}
	if err := writeParquetFile(s.equityPath(runID), records); err != nil {
		return fmt.Errorf("writing equity for run %s: %w", runID, err)
	}
	return nil
}

// ReadEquity reads the equity curve of a run. A run without a file yields
// an empty curve.
func (s *ParquetStore) ReadEquity(_ context.Context, runID string) ([]domain.EquityPoint, error) {
	records, err := readParquetFile[EquityRecord](s.equityPath(runID))
	if err != nil {
		return nil, fmt.Errorf("reading equity for run %s: %w", runID, err)
	}
	points := make([]domain.EquityPoint, len(records))
	for i, r := range records {
		points[i] = domain.EquityPoint{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Equity:    r.Equity,
			Cash:      r.Cash,
		}
	}
	return points, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/bars/<timeframe>/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, tf domain.Timeframe, year int) string {
	return filepath.Join(s.DataDir, "bars", tf.String(), strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// equityPath returns the filesystem path for an equity Parquet file.
func (s *ParquetStore) equityPath(runID string) string {
	return filepath.Join(s.DataDir, "equity", runID+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// readParquetFile reads every row of path. A missing file yields no rows and
// no error.
func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
