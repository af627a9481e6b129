package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"vantage/internal/config"
	"vantage/internal/domain"
	"vantage/internal/report"
	"vantage/internal/store"
	"vantage/internal/strategy"
	"vantage/internal/util"
)

// barFlags are the bar-selection flags shared by backtest and sweep.
type barFlags struct {
	symbol    *string
	timeframe *string
	start     *string
	end       *string
	csvPath   *string
}

func addBarFlags(fs *flag.FlagSet, cfg *config.Config) barFlags {
	return barFlags{
		symbol:    fs.String("symbol", "", "symbol to test (required unless -csv carries a symbol column)"),
		timeframe: fs.String("timeframe", cfg.Backtest.Timeframe, "bar timeframe, e.g. 1Day, 15Min"),
		start:     fs.String("start", "", "first day YYYY-MM-DD (default: all stored data)"),
		end:       fs.String("end", "", "last day YYYY-MM-DD (default: today)"),
		csvPath:   fs.String("csv", "", "read bars from this CSV file instead of the data directory"),
	}
}

// loadBars returns the bars selected by f, either from a CSV file or from the
// Parquet store under cfg.Storage.DataDir.
func loadBars(ctx context.Context, cfg *config.Config, f barFlags, logger *slog.Logger) ([]domain.Bar, domain.Timeframe) {
	tf, err := domain.ParseTimeframe(*f.timeframe)
	if err != nil {
		log.Fatalf("invalid -timeframe: %v", err)
	}
	symbol := strings.ToUpper(*f.symbol)

	if *f.csvPath != "" {
		bars, err := store.LoadBarsCSV(*f.csvPath, symbol)
		if err != nil {
			log.Fatalf("failed to read %s: %v", *f.csvPath, err)
		}
		logger.Info("loaded csv bars", "path", *f.csvPath, "bars", len(bars))
		return bars, tf
	}

	if symbol == "" {
		log.Fatalf("-symbol is required")
	}
	start := time.Unix(0, 0).UTC()
	if *f.start != "" {
		if start, err = time.Parse("2006-01-02", *f.start); err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
	}
	end := time.Now().UTC()
	if *f.end != "" {
		if end, err = time.Parse("2006-01-02", *f.end); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	bars, err := store.NewParquetStore(cfg.Storage.DataDir).ReadBars(ctx, symbol, tf, start, end)
	if err != nil {
		log.Fatalf("failed to read bars: %v", err)
	}
	logger.Info("loaded stored bars", "symbol", symbol, "timeframe", tf.String(), "bars", len(bars))
	return bars, tf
}

func runBacktest(args []string) {
	cfg := loadConfig()
	fs := newFlagSet("backtest")
	bf := addBarFlags(fs, cfg)
	name := fs.String("strategy", cfg.Backtest.Strategy, "registered strategy name")
	capital := fs.Float64("capital", cfg.Backtest.InitialCapital, "initial capital")
	tradesCSV := fs.String("trades-csv", "", "write the trade ledger to this CSV file")
	equityCSV := fs.String("equity-csv", "", "write the equity curve to this CSV file")
	showTrades := fs.Int("show-trades", 20, "trades to print (0 = none, -1 = all)")
	noSave := fs.Bool("no-save", false, "do not persist the run to SQLite")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := setupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cal, err := util.LoadTradingCalendar(cfg.Backtest.Timezone)
	if err != nil {
		log.Fatalf("invalid backtest.timezone: %v", err)
	}
	bars, tf := loadBars(ctx, cfg, bf, logger)

	bt, err := strategy.NewBacktester(nil, newRegistry(cfg), cfg.Risk, cal, logger)
	if err != nil {
		log.Fatalf("invalid risk config: %v", err)
	}
	res, err := bt.RunBars(strategy.Request{
		Strategy:       *name,
		Symbol:         strings.ToUpper(*bf.symbol),
		Timeframe:      tf,
		InitialCapital: *capital,
	}, bars)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	rejections := make(map[string]int, len(res.Result.Rejections))
	for reason, n := range res.Result.Rejections {
		rejections[string(reason)] = n
	}
	fmt.Print(report.Render(report.Header{
		RunID:     res.RunID,
		Strategy:  res.Request.Strategy,
		Symbol:    res.Request.Symbol,
		Timeframe: tf.String(),
		Start:     res.Request.Start,
		End:       res.Request.End,
	}, res.Report, rejections))
	if n := len(res.Result.Anomalies); n > 0 {
		fmt.Printf("%d execution anomalies were skipped (see log)\n", n)
	}
	if *showTrades != 0 && len(res.Result.Trades) > 0 {
		fmt.Println()
		fmt.Print(report.RenderTrades(res.Result.Trades, max(*showTrades, 0)))
	}

	if *tradesCSV != "" || *equityCSV != "" {
		if err := store.ExportCSV(*tradesCSV, *equityCSV, res.Result.Trades, res.Result.Equity); err != nil {
			log.Fatalf("csv export failed: %v", err)
		}
	}

	if !*noSave {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			log.Fatalf("failed to create database dir: %v", err)
		}
		rs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open %s: %v", cfg.Storage.SQLitePath, err)
		}
		defer rs.Close()
		if err := res.Save(ctx, rs, store.NewParquetStore(cfg.Storage.DataDir)); err != nil {
			log.Fatalf("failed to save run: %v", err)
		}
		logger.Info("run saved", "run_id", res.RunID, "db", cfg.Storage.SQLitePath)
	}
}
