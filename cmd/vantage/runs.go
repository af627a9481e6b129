package main

import (
	"context"
	"fmt"
	"log"

	"vantage/internal/report"
	"vantage/internal/store"
)

func runRuns(args []string) {
	cfg := loadConfig()
	fs := newFlagSet("runs")
	id := fs.String("id", "", "show the saved report and trades of this run")
	showTrades := fs.Int("show-trades", 20, "trades to print with -id (-1 = all)")
	fs.Parse(args)

	setupLogger(cfg)
	ctx := context.Background()

	rs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", cfg.Storage.SQLitePath, err)
	}
	defer rs.Close()

	runs, err := rs.ListRuns(ctx)
	if err != nil {
		log.Fatalf("failed to list runs: %v", err)
	}

	if *id == "" {
		fmt.Printf("%-36s  %-14s %-8s %-6s %-10s %-10s %14s\n", "RUN", "STRATEGY", "SYMBOL", "TF", "START", "END", "FINAL EQUITY")
		for _, r := range runs {
			fmt.Printf("%-36s  %-14s %-8s %-6s %-10s %-10s %14s\n",
				r.ID, r.Strategy, r.Symbol, r.Timeframe,
				r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), report.FormatMoney(r.FinalEquity))
		}
		return
	}

	var found *store.Run
	for i := range runs {
		if runs[i].ID == *id {
			found = &runs[i]
			break
		}
	}
	if found == nil {
		log.Fatalf("run %s not found", *id)
	}

	metrics, err := rs.LoadReport(ctx, *id)
	if err != nil {
		log.Fatalf("failed to load report: %v", err)
	}
	trades, err := rs.ListTrades(ctx, *id)
	if err != nil {
		log.Fatalf("failed to load trades: %v", err)
	}

	fmt.Print(report.Render(report.Header{
		RunID:     found.ID,
		Strategy:  found.Strategy,
		Symbol:    found.Symbol,
		Timeframe: found.Timeframe,
		Start:     found.Start,
		End:       found.End,
	}, report.FromMap(metrics), nil))
	if *showTrades != 0 && len(trades) > 0 {
		fmt.Println()
		fmt.Print(report.RenderTrades(trades, max(*showTrades, 0)))
	}
}
