package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vantage/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	strategy        TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	timeframe       TEXT NOT NULL,
	start_ms        INTEGER NOT NULL,
	end_ms          INTEGER NOT NULL,
	started_at_ms   INTEGER NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity    REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	seq           INTEGER NOT NULL,
	symbol        TEXT NOT NULL,
	side          TEXT NOT NULL,
	entry_price   REAL NOT NULL,
	exit_price    REAL NOT NULL,
	quantity      REAL NOT NULL,
	entry_time_ms INTEGER NOT NULL,
	exit_time_ms  INTEGER NOT NULL,
	fees          REAL NOT NULL,
	pnl           REAL NOT NULL,
	pnl_percent   REAL NOT NULL,
	exit_reason   TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS equity (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	timestamp_ms INTEGER NOT NULL,
	equity       REAL NOT NULL,
	cash         REAL NOT NULL,
	PRIMARY KEY (run_id, timestamp_ms)
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	value  REAL,
	PRIMARY KEY (run_id, name)
);
`

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// result tables if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, committing on success.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// SaveRun inserts or replaces the run row.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, strategy, symbol, timeframe, start_ms, end_ms, started_at_ms, initial_capital, final_equity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Symbol, run.Timeframe,
		run.Start.UnixMilli(), run.End.UnixMilli(), run.StartedAt.UnixMilli(),
		run.InitialCapital, run.FinalEquity,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns all runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, symbol, timeframe, start_ms, end_ms, started_at_ms, initial_capital, final_equity
		 FROM runs ORDER BY started_at_ms DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startMs, endMs, startedMs int64
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Symbol, &r.Timeframe, &startMs, &endMs, &startedMs, &r.InitialCapital, &r.FinalEquity); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Start = time.UnixMilli(startMs).UTC()
		r.End = time.UnixMilli(endMs).UTC()
		r.StartedAt = time.UnixMilli(startedMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

// SaveTrades appends the trade ledger of a run in one transaction.
func (s *SQLiteStore) SaveTrades(ctx context.Context, runID string, trades []domain.Trade) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM trades WHERE run_id = ?`, runID).Scan(&next); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO trades
			 (run_id, seq, symbol, side, entry_price, exit_price, quantity, entry_time_ms, exit_time_ms, fees, pnl, pnl_percent, exit_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range trades {
			if _, err := stmt.ExecContext(ctx,
				runID, next+i, t.Symbol, string(t.Side), t.EntryPrice, t.ExitPrice, t.Quantity,
				t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(), t.Fees, t.PnL, t.PnLPercent, string(t.ExitReason),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving trades for run %s: %w", runID, err)
	}
	return nil
}

// ListTrades returns the trades of a run in ledger order.
func (s *SQLiteStore) ListTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, side, entry_price, exit_price, quantity, entry_time_ms, exit_time_ms, fees, pnl, pnl_percent, exit_reason
		 FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing trades for run %s: %w", runID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, reason string
		var entryMs, exitMs int64
		if err := rows.Scan(&t.Symbol, &side, &t.EntryPrice, &t.ExitPrice, &t.Quantity, &entryMs, &exitMs, &t.Fees, &t.PnL, &t.PnLPercent, &reason); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Side = domain.PositionSide(side)
		t.ExitReason = domain.ExitReason(reason)
		t.EntryTime = time.UnixMilli(entryMs).UTC()
		t.ExitTime = time.UnixMilli(exitMs).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ---------------------------------------------------------------------------
// Equity and metrics
// ---------------------------------------------------------------------------

// SaveEquity appends the equity curve of a run in one transaction.
func (s *SQLiteStore) SaveEquity(ctx context.Context, runID string, points []domain.EquityPoint) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO equity (run_id, timestamp_ms, equity, cash) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, runID, p.Timestamp.UnixMilli(), p.Equity, p.Cash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving equity for run %s: %w", runID, err)
	}
	return nil
}

// SaveReport stores the flat metrics of a run, replacing earlier values.
func (s *SQLiteStore) SaveReport(ctx context.Context, runID string, metrics map[string]float64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO metrics (run_id, name, value) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for name, v := range metrics {
			if _, err := stmt.ExecContext(ctx, runID, name, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving report for run %s: %w", runID, err)
	}
	return nil
}

// LoadReport returns the metrics saved for a run.
func (s *SQLiteStore) LoadReport(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading report for run %s: %w", runID, err)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var name string
		var v sql.NullFloat64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		metrics[name] = v.Float64
	}
	return metrics, rows.Err()
}
