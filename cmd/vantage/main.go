package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"vantage/internal/config"
	"vantage/internal/strategy"
	"vantage/internal/strategy/builtins"
	"vantage/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: vantage <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  backtest   Run one strategy over stored or CSV bars\n")
	fmt.Fprintf(os.Stderr, "  sweep      Run a stop-loss / take-profit grid in parallel\n")
	fmt.Fprintf(os.Stderr, "  fetch      Download bars from Alpaca into the data directory\n")
	fmt.Fprintf(os.Stderr, "  runs       List saved runs, or show one with -id\n")
	fmt.Fprintf(os.Stderr, "  version    Print the version\n")
	fmt.Fprintf(os.Stderr, "\nThe config file is taken from VANTAGE_CONFIG (default config/vantage.yaml).\n")
}

func main() {
	log.SetFlags(0)
	flag.Usage = usage

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "version":
		fmt.Printf("vantage %s\n", version)
	case "backtest":
		runBacktest(args)
	case "sweep":
		runSweep(args)
	case "fetch":
		runFetch(args)
	case "runs":
		runRuns(args)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// loadConfig reads the config file named by VANTAGE_CONFIG, falling back to
// config/vantage.yaml when it exists and to the defaults otherwise.
func loadConfig() *config.Config {
	cfgPath := os.Getenv("VANTAGE_CONFIG")
	if cfgPath == "" {
		if _, err := os.Stat("config/vantage.yaml"); err == nil {
			cfgPath = "config/vantage.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func setupLogger(cfg *config.Config) *slog.Logger {
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	return logger
}

func newRegistry(cfg *config.Config) *strategy.Registry {
	reg := strategy.NewRegistry()
	if err := builtins.Register(reg, cfg.Strategies.SMACross); err != nil {
		log.Fatalf("invalid strategy parameters: %v", err)
	}
	return reg
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vantage %s [options]\n\n", name)
		fs.PrintDefaults()
	}
	return fs
}
