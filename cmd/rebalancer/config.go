package main

import (
	"strategy_rebalancer/internal/config"
	"strategy_rebalancer/internal/trading/rebalance"
)

// settingsFromConfig maps the loaded configuration onto the engine's run settings
func settingsFromConfig(cfg *config.Config, dryRun bool) rebalance.Settings {
	return rebalance.Settings{
		StrategyID:           cfg.API.StrategyID,
		BaseCurrency:         cfg.Rebalance.BaseCurrency,
		CashInstrumentID:     cfg.Rebalance.CashInstrumentID,
		CashLookupKey:        cfg.Rebalance.CashLookupKey,
		CryptoVenue:          cfg.Rebalance.CryptoVenue,
		AbortOnCancelFailure: cfg.Rebalance.ShouldAbortOnCancelFailure(),
		DryRun:               dryRun || cfg.App.DryRun,
	}
}

// desiredPositions parses the configured target portfolio in file order
func desiredPositions(cfg *config.Config) ([]rebalance.DesiredPosition, error) {
	out := make([]rebalance.DesiredPosition, 0, len(cfg.Rebalance.Positions))
	for _, p := range cfg.Rebalance.Positions {
		d, err := rebalance.ParseDesiredPosition(p.Symbol, p.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
