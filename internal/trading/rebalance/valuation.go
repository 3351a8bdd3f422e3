package rebalance

import (
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// Target is the instrument amount a desired position should be held at after the run
type Target struct {
	InstrumentID   string
	Symbol         string
	Amount         decimal.Decimal
	ReferencePrice decimal.Decimal
}

// Valuation is the outcome of scaling desired weights onto the strategy's capital
type Valuation struct {
	TotalDesiredValue decimal.Decimal
	StrategyValue     decimal.Decimal
	// Targets follow the order of the desired positions and exclude cash
	Targets []Target
}

// Target looks up the target for an instrument
func (v *Valuation) Target(instrumentID string) (Target, bool) {
	for _, t := range v.Targets {
		if t.InstrumentID == instrumentID {
			return t, true
		}
	}
	return Target{}, false
}

// TotalDesiredValue sums amount * reference price over all resolved positions
func TotalDesiredValue(resolved []ResolvedPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range resolved {
		total = total.Add(p.Value())
	}
	return total
}

// Valuate treats the desired amounts as weights and rescales them onto strategyValue:
// target_i = amount_i / total_desired_value * strategy_value, in instrument units.
func Valuate(resolved []ResolvedPosition, strategyValue decimal.Decimal) (*Valuation, error) {
	total := TotalDesiredValue(resolved)
	if total.IsZero() {
		return nil, &DegenerateWeightsError{Positions: len(resolved)}
	}

	targets := make([]Target, 0, len(resolved))
	for _, p := range resolved {
		if p.Cash {
			continue
		}
		targets = append(targets, Target{
			InstrumentID:   p.InstrumentID,
			Symbol:         p.Symbol,
			Amount:         tradingutils.ScaleShare(p.Amount, total, strategyValue),
			ReferencePrice: p.ReferencePrice,
		})
	}

	return &Valuation{
		TotalDesiredValue: total,
		StrategyValue:     strategyValue,
		Targets:           targets,
	}, nil
}
