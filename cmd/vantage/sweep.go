package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"vantage/internal/engine"
	"vantage/internal/performance"
	"vantage/internal/report"
	"vantage/internal/risk"
	"vantage/internal/util"
)

// parseFloats parses a comma-separated list of numbers.
func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

type sweepRow struct {
	name   string
	report performance.Report
	err    error
}

func runSweep(args []string) {
	cfg := loadConfig()
	fs := newFlagSet("sweep")
	bf := addBarFlags(fs, cfg)
	name := fs.String("strategy", cfg.Backtest.Strategy, "registered strategy name")
	capital := fs.Float64("capital", cfg.Backtest.InitialCapital, "initial capital")
	workers := fs.Int("workers", cfg.Sweep.Workers, "concurrent runs")
	stops := fs.String("stop-loss", joinFloats(cfg.Sweep.StopLossPercents), "comma-separated stop-loss fractions")
	targets := fs.String("take-profit", joinFloats(cfg.Sweep.TakeProfitPercents), "comma-separated take-profit fractions (0 disables)")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := setupLogger(cfg)

	stopList, err := parseFloats(*stops)
	if err != nil || len(stopList) == 0 {
		log.Fatalf("invalid -stop-loss %q: %v", *stops, err)
	}
	targetList, err := parseFloats(*targets)
	if err != nil || len(targetList) == 0 {
		log.Fatalf("invalid -take-profit %q: %v", *targets, err)
	}

	s, ok := newRegistry(cfg).Get(*name)
	if !ok {
		log.Fatalf("unknown strategy %q", *name)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cal, err := util.LoadTradingCalendar(cfg.Backtest.Timezone)
	if err != nil {
		log.Fatalf("invalid backtest.timezone: %v", err)
	}
	bars, tf := loadBars(ctx, cfg, bf, logger)

	jobs := sweepJobs(cfg.Risk, s, *capital, stopList, targetList)
	logger.Info("starting sweep", "strategy", *name, "jobs", len(jobs), "workers", *workers)

	results, err := engine.Sweep(ctx, bars, jobs, *workers, cal, logger)
	if err != nil {
		log.Fatalf("sweep aborted: %v", err)
	}

	rows := make([]sweepRow, len(results))
	for i, jr := range results {
		rows[i] = sweepRow{name: jr.Job.Name, err: jr.Err}
		if jr.Err == nil {
			rows[i].report = performance.Calculate(jr.Result.Trades, jr.Result.Equity, jr.Job.InitialCapital, tf.PeriodsPerYear())
		}
	}
	fmt.Print(renderSweep(rows))
}

// renderSweep prints one line per job, best total return first. Failed jobs
// sort last.
func renderSweep(rows []sweepRow) string {
	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].err == nil) != (rows[j].err == nil) {
			return rows[i].err == nil
		}
		return rows[i].report.TotalReturn > rows[j].report.TotalReturn
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %8s %10s %8s %8s %8s %8s\n", "JOB", "TRADES", "RETURN", "SHARPE", "MAX DD", "WIN", "PF")
	for _, r := range rows {
		if r.err != nil {
			fmt.Fprintf(&b, "%-22s error: %v\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(&b, "%-22s %8d %10s %8s %8s %7.1f%% %8s\n",
			r.name, r.report.TotalTrades, report.FormatPct(r.report.TotalReturn),
			report.FormatRatio(r.report.SharpeRatio), report.FormatPct(r.report.MaxDrawdown),
			r.report.WinRate*100, report.FormatRatio(r.report.ProfitFactor))
	}
	return b.String()
}

// sweepJobs builds one job per (stop, target) pair on top of base.
func sweepJobs(base risk.Config, s engine.Strategy, capital float64, stops, targets []float64) []engine.Job {
	jobs := make([]engine.Job, 0, len(stops)*len(targets))
	for _, sl := range stops {
		for _, tp := range targets {
			cfg := base
			cfg.StopLossPercent = sl
			cfg.TakeProfitPercent = tp
			jobs = append(jobs, engine.Job{
				Name:           fmt.Sprintf("sl=%g tp=%g", sl, tp),
				Config:         cfg,
				Strategy:       s,
				InitialCapital: capital,
			})
		}
	}
	return jobs
}
