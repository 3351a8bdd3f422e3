package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strategy_rebalancer/internal/config"
	"strategy_rebalancer/internal/exchange/alphainsider"
	"strategy_rebalancer/internal/trading/rebalance"
	"strategy_rebalancer/pkg/logging"
	"strategy_rebalancer/pkg/telemetry"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/rebalancer.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Compute and print the plan without cancelling or placing orders")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rebalancer version %s (built %s)\n", version, buildTime)
		return 0
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Telemetry comes first so the logger's OTel bridge binds to the configured provider.
	var tel *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		opts := telemetry.Options{ServiceName: cfg.App.Name, ServiceVersion: version}
		if cfg.Telemetry.TraceFile != "" {
			traceOut, err := os.OpenFile(cfg.Telemetry.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open trace file: %v\n", err)
				return 1
			}
			defer traceOut.Close()
			opts.Output = traceOut
		}
		tel, err = telemetry.Setup(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Telemetry shutdown failed: %v\n", err)
			}
		}()
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel, logging.WithFormat(cfg.System.LogFormat), logging.WithName(cfg.App.Name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	desired, err := desiredPositions(cfg)
	if err != nil {
		logger.Error("Invalid desired positions", "error", err)
		return 1
	}

	settings := settingsFromConfig(cfg, *dryRun)
	logger.Info("Starting rebalancer",
		"version", version,
		"strategy_id", settings.StrategyID,
		"api_key", cfg.API.APIKey.Hint(),
		"positions", len(desired),
		"dry_run", settings.DryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := alphainsider.NewClient(cfg.API, logger)
	engine := rebalance.NewEngine(api, settings, logger)

	report, err := engine.Run(ctx, desired)
	fmt.Print(report.Summary())

	if tel != nil && cfg.Telemetry.MetricsFile != "" {
		if werr := tel.WriteMetricsFile(cfg.Telemetry.MetricsFile); werr != nil {
			logger.Warn("Failed to write metrics file", "path", cfg.Telemetry.MetricsFile, "error", werr)
		}
	}

	if err != nil {
		return 1
	}
	return 0
}
