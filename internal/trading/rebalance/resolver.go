package rebalance

import (
	"context"

	"strategy_rebalancer/internal/core"

	"github.com/shopspring/decimal"
)

// Resolver maps desired symbols to instrument identifiers and reference prices
type Resolver struct {
	api              core.ITradingAPI
	baseCurrency     string
	cashInstrumentID string
	cryptoVenue      string
	logger           core.ILogger
}

// NewResolver creates a resolver for the given platform conventions
func NewResolver(api core.ITradingAPI, settings Settings, logger core.ILogger) *Resolver {
	return &Resolver{
		api:              api,
		baseCurrency:     settings.BaseCurrency,
		cashInstrumentID: settings.CashInstrumentID,
		cryptoVenue:      settings.CryptoVenue,
		logger:           logger.WithField("component", "resolver"),
	}
}

// venue picks the lookup venue for a strategy. Only cryptocurrency strategies have a
// fixed venue; anything else is looked up with an empty venue.
func (r *Resolver) venue(strategy *core.Strategy) string {
	if strategy != nil && strategy.AssetClass == core.AssetClassCryptocurrency {
		return r.cryptoVenue
	}
	return ""
}

// LookupKeys returns the symbol:venue keys for every non-cash desired position
func (r *Resolver) LookupKeys(desired []DesiredPosition, strategy *core.Strategy) []string {
	venue := r.venue(strategy)
	keys := make([]string, 0, len(desired))
	for _, p := range desired {
		if p.Symbol == r.baseCurrency {
			continue
		}
		keys = append(keys, p.Symbol+":"+venue)
	}
	return keys
}

// Resolve binds every desired position to an instrument with one batched lookup.
// It fails with a ResolutionError unless every position resolves.
func (r *Resolver) Resolve(ctx context.Context, desired []DesiredPosition, strategy *core.Strategy) ([]ResolvedPosition, error) {
	if dups := duplicateSymbols(desired); len(dups) > 0 {
		return nil, &ResolutionError{Duplicates: dups}
	}

	var instruments []core.Instrument
	if keys := r.LookupKeys(desired, strategy); len(keys) > 0 {
		r.logger.Debug("Looking up instruments", "keys", keys)
		var err error
		instruments, err = r.api.GetInstruments(ctx, keys)
		if err != nil {
			return nil, external(StageGetInstruments, err)
		}
	}

	return r.Match(desired, instruments)
}

// Match pairs desired positions with looked-up instruments by symbol. The first
// instrument with a matching symbol wins.
func (r *Resolver) Match(desired []DesiredPosition, instruments []core.Instrument) ([]ResolvedPosition, error) {
	bySymbol := make(map[string]core.Instrument, len(instruments))
	for _, inst := range instruments {
		if _, ok := bySymbol[inst.Symbol]; !ok {
			bySymbol[inst.Symbol] = inst
		}
	}

	resolved := make([]ResolvedPosition, 0, len(desired))
	var unresolved []string
	for _, p := range desired {
		if p.Symbol == r.baseCurrency {
			resolved = append(resolved, ResolvedPosition{
				DesiredPosition: p,
				InstrumentID:    r.cashInstrumentID,
				ReferencePrice:  decimal.NewFromInt(1),
				Cash:            true,
			})
			continue
		}

		inst, ok := bySymbol[p.Symbol]
		if !ok || inst.ID == "" || !inst.LastPrice.Valid || !inst.LastPrice.Decimal.IsPositive() {
			unresolved = append(unresolved, p.Symbol)
			continue
		}
		resolved = append(resolved, ResolvedPosition{
			DesiredPosition: p,
			InstrumentID:    inst.ID,
			ReferencePrice:  inst.LastPrice.Decimal,
		})
	}

	if len(unresolved) > 0 {
		return nil, &ResolutionError{Unresolved: unresolved}
	}
	return resolved, nil
}

func duplicateSymbols(desired []DesiredPosition) []string {
	seen := make(map[string]int, len(desired))
	var dups []string
	for _, p := range desired {
		seen[p.Symbol]++
		if seen[p.Symbol] == 2 {
			dups = append(dups, p.Symbol)
		}
	}
	return dups
}
