package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vantage/internal/domain"
	"vantage/internal/gather"
	"vantage/internal/store"
)

func runFetch(args []string) {
	cfg := loadConfig()
	fs := newFlagSet("fetch")
	symbols := fs.String("symbols", strings.Join(cfg.Fetch.Symbols, ","), "comma-separated symbols")
	timeframe := fs.String("timeframe", cfg.Backtest.Timeframe, "bar timeframe, e.g. 1Day, 15Min")
	start := fs.String("start", cfg.Fetch.StartDate, "first day YYYY-MM-DD")
	end := fs.String("end", "", "last day YYYY-MM-DD (default: today)")
	fs.Parse(args)

	logger := setupLogger(cfg)

	tf, err := domain.ParseTimeframe(*timeframe)
	if err != nil {
		log.Fatalf("invalid -timeframe: %v", err)
	}
	dr, err := gather.ParseDateRange(*start, *end, time.Now())
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	g, err := gather.NewAlpacaBarGatherer(gather.AlpacaConfig{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		Feed:            cfg.Alpaca.Feed,
		Symbols:         strings.Split(*symbols, ","),
		Timeframe:       tf,
		Range:           dr,
		BatchSize:       cfg.Fetch.BatchSize,
		RateLimitPerMin: cfg.Fetch.RateLimitPerMin,
		MaxAttempts:     cfg.Fetch.MaxAttempts,
		RetryDelay:      2 * time.Second,
	}, store.NewParquetStore(cfg.Storage.DataDir), logger)
	if err != nil {
		log.Fatalf("failed to create gatherer: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := g.Run(ctx); err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
}
