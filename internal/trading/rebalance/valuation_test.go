package rebalance

import (
	"errors"
	"testing"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedPositions(t *testing.T) []ResolvedPosition {
	t.Helper()
	r := NewResolver(nil, testSettings(), nopLogger)
	out, err := r.Match(
		desired(t, "USD", "1000", "BTC", "0.1", "ETH", "2", "SOL", "33.3"),
		[]core.Instrument{
			priced(btcID, "BTC", "60000"),
			priced(ethID, "ETH", "3000"),
			priced(solID, "SOL", "150.25"),
		},
	)
	require.NoError(t, err)
	return out
}

func TestValuate_ScalesWeightsOntoStrategyValue(t *testing.T) {
	r := NewResolver(nil, testSettings(), nopLogger)
	resolved, err := r.Match(desired(t, "USD", "1000", "BTC", "0.1"), []core.Instrument{
		priced(btcID, "BTC", "60000"),
	})
	require.NoError(t, err)

	v, err := Valuate(resolved, d("500"))
	require.NoError(t, err)

	assert.True(t, v.TotalDesiredValue.Equal(d("7000")), "total desired value %s", v.TotalDesiredValue)
	require.Len(t, v.Targets, 1, "cash has no target")

	btc, ok := v.Target(btcID)
	require.True(t, ok)
	exact := d("50").DivRound(d("7000"), 40)
	assert.True(t, btc.Amount.Sub(exact).Abs().LessThan(d("1e-26")), "BTC target %s", btc.Amount)
	assert.Equal(t, "0.0071428571428571428571428571", btc.Amount.String())
}

func TestValuate_ConservesStrategyValue(t *testing.T) {
	resolved := resolvedPositions(t)

	for _, sv := range []string{"1", "500", "12345.678", "98765432.1"} {
		strategyValue := d(sv)
		v, err := Valuate(resolved, strategyValue)
		require.NoError(t, err)

		// cash is valued at 1 and weighted, but carries no target
		sum := decimal.Zero
		for _, target := range v.Targets {
			sum = sum.Add(target.Amount.Mul(target.ReferencePrice))
		}
		cashShare := tradingutils.ScaleShare(d("1000"), v.TotalDesiredValue, strategyValue)
		sum = sum.Add(cashShare)

		assert.True(t, sum.Sub(strategyValue).Abs().LessThan(d("1e-18")),
			"strategy value %s, targets sum to %s", sv, sum)
	}
}

func TestValuate_KeepsDesiredOrder(t *testing.T) {
	v, err := Valuate(resolvedPositions(t), d("1000"))
	require.NoError(t, err)

	var ids []string
	for _, target := range v.Targets {
		ids = append(ids, target.InstrumentID)
	}
	assert.Equal(t, []string{btcID, ethID, solID}, ids)
}

func TestValuate_ZeroTotalIsDegenerate(t *testing.T) {
	r := NewResolver(nil, testSettings(), nopLogger)
	resolved, err := r.Match(desired(t, "USD", "0", "BTC", "0"), []core.Instrument{
		priced(btcID, "BTC", "60000"),
	})
	require.NoError(t, err)

	_, err = Valuate(resolved, d("500"))
	var degErr *DegenerateWeightsError
	require.True(t, errors.As(err, &degErr))
	assert.Equal(t, 2, degErr.Positions)
}

func TestValuate_ZeroStrategyValue(t *testing.T) {
	v, err := Valuate(resolvedPositions(t), decimal.Zero)
	require.NoError(t, err)
	for _, target := range v.Targets {
		assert.True(t, target.Amount.IsZero())
	}
}
