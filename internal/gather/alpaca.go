package gather

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"vantage/internal/domain"
	"vantage/internal/store"
	"vantage/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*AlpacaBarGatherer)(nil)

// barSource is the part of the Alpaca market-data client the gatherer uses.
type barSource interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaConfig holds the settings of an AlpacaBarGatherer.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string
	Feed      string // "sip" or "iex"

	Symbols   []string
	Timeframe domain.Timeframe
	Range     DateRange

	BatchSize       int // symbols per request
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
}

// AlpacaBarGatherer downloads split-adjusted bars from the Alpaca market-data
// API and writes them to a BarStore.
type AlpacaBarGatherer struct {
	cfg     AlpacaConfig
	client  barSource
	store   store.BarStore
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaBarGatherer creates a gatherer for cfg writing to s.
func NewAlpacaBarGatherer(cfg AlpacaConfig, s store.BarStore, log *slog.Logger) (*AlpacaBarGatherer, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, domain.NewConfigurationError("alpaca.api_key", "alpaca credentials are required")
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	return newAlpacaBarGatherer(cfg, marketdata.NewClient(opts), s, log), nil
}

func newAlpacaBarGatherer(cfg AlpacaConfig, client barSource, s store.BarStore, log *slog.Logger) *AlpacaBarGatherer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Feed == "" {
		cfg.Feed = "iex"
	}
	return &AlpacaBarGatherer{
		cfg:     cfg,
		client:  client,
		store:   s,
		limiter: util.NewRateLimiter(cfg.RateLimitPerMin, 1),
		log:     util.OrDefault(log).With("gatherer", "alpaca-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *AlpacaBarGatherer) Name() string { return "alpaca-bars" }

// Run fetches bars for every configured symbol in batches and writes each
// batch to the store as it arrives.
func (g *AlpacaBarGatherer) Run(ctx context.Context) error {
	tf, err := AlpacaTimeFrame(g.cfg.Timeframe)
	if err != nil {
		return err
	}

	symbols := normalizeSymbols(g.cfg.Symbols)
	if len(symbols) == 0 {
		return domain.NewConfigurationError("fetch.symbols", "no symbols to fetch")
	}

	g.log.Info("starting fetch",
		"symbols", len(symbols),
		"timeframe", g.cfg.Timeframe.String(),
		"start", g.cfg.Range.Start.Format("2006-01-02"),
		"end", g.cfg.Range.End.Format("2006-01-02"),
	)

	total := 0
	for i := 0; i < len(symbols); i += g.cfg.BatchSize {
		batch := symbols[i:min(i+g.cfg.BatchSize, len(symbols))]

		var bars []domain.Bar
		err := util.Retry(ctx, g.log, g.cfg.MaxAttempts, g.cfg.RetryDelay, func() error {
			if err := g.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
			var err error
			bars, err = g.fetch(batch, tf)
			return err
		})
		if err != nil {
			return fmt.Errorf("fetching %v: %w", batch, err)
		}

		if err := g.store.WriteBars(ctx, g.cfg.Timeframe, bars); err != nil {
			return fmt.Errorf("writing bars: %w", err)
		}
		total += len(bars)
		g.log.Info("batch stored", "symbols", len(batch), "bars", len(bars))
	}

	g.log.Info("fetch complete", "bars", total)
	return nil
}

func (g *AlpacaBarGatherer) fetch(symbols []string, tf marketdata.TimeFrame) ([]domain.Bar, error) {
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.Split,
		Start:      g.cfg.Range.Start,
		End:        g.cfg.Range.End,
		Feed:       g.cfg.Feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}
	return convertBars(multiBars), nil
}

// convertBars flattens an Alpaca multi-bar response into domain bars, sorted
// by symbol then timestamp.
func convertBars(multiBars map[string][]marketdata.Bar) []domain.Bar {
	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp.UTC(),
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     float64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars
}

// AlpacaTimeFrame maps a timeframe onto the Alpaca API's. Alpaca accepts
// 1-59 minutes, 1-23 hours, and single days, weeks, and 1, 2, 3, 4, 6 or 12 months.
func AlpacaTimeFrame(tf domain.Timeframe) (marketdata.TimeFrame, error) {
	bad := domain.NewConfigurationError("timeframe", "%s is not supported by alpaca", tf)
	switch tf.Unit {
	case domain.UnitMinute:
		if tf.N < 1 || tf.N > 59 {
			return marketdata.TimeFrame{}, bad
		}
		return marketdata.NewTimeFrame(tf.N, marketdata.Min), nil
	case domain.UnitHour:
		if tf.N < 1 || tf.N > 23 {
			return marketdata.TimeFrame{}, bad
		}
		return marketdata.NewTimeFrame(tf.N, marketdata.Hour), nil
	case domain.UnitDay:
		if tf.N != 1 {
			return marketdata.TimeFrame{}, bad
		}
		return marketdata.OneDay, nil
	case domain.UnitWeek:
		if tf.N != 1 {
			return marketdata.TimeFrame{}, bad
		}
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case domain.UnitMonth:
		switch tf.N {
		case 1, 2, 3, 4, 6, 12:
			return marketdata.NewTimeFrame(tf.N, marketdata.Month), nil
		}
	}
	return marketdata.TimeFrame{}, bad
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
