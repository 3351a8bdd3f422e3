package rebalance

import (
	"testing"

	"strategy_rebalancer/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valuationOf(targets ...Target) *Valuation {
	return &Valuation{Targets: targets}
}

func held(id, symbol, amount string) core.HeldPosition {
	return core.HeldPosition{InstrumentID: id, Symbol: symbol, Amount: d(amount)}
}

func TestReconcile_BuyUsesReferencePrice(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	target := Target{InstrumentID: btcID, Symbol: "BTC", Amount: d("0.0071428571428571428571428571"), ReferencePrice: d("60000")}

	intents := r.Reconcile(valuationOf(target), []core.HeldPosition{held(testCashID, "USD", "500")})
	require.Len(t, intents, 1)

	buy := intents[0]
	assert.Equal(t, core.SideBuy, buy.Side)
	assert.Equal(t, core.OrderTypeMarket, buy.Type)
	assert.Equal(t, ReasonAdjust, buy.Reason)
	assert.True(t, buy.Quantity.Equal(target.Amount))

	total, ok := buy.Total()
	require.True(t, ok)
	assert.Equal(t, "428.571428571428571428571426", total.String())
	_, ok = buy.Amount()
	assert.False(t, ok)
}

func TestReconcile_PartialSell(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	target := Target{InstrumentID: ethID, Symbol: "ETH", Amount: d("1.25"), ReferencePrice: d("3000")}

	intents := r.Reconcile(valuationOf(target), []core.HeldPosition{held(ethID, "ETH", "2")})
	require.Len(t, intents, 1)
	assert.Equal(t, core.SideSell, intents[0].Side)
	assert.Equal(t, ReasonAdjust, intents[0].Reason)

	amount, ok := intents[0].Amount()
	require.True(t, ok)
	assert.True(t, amount.Equal(d("0.75")))
}

func TestReconcile_OnTargetEmitsNothing(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	target := Target{InstrumentID: btcID, Symbol: "BTC", Amount: d("0.05"), ReferencePrice: d("60000")}

	intents := r.Reconcile(valuationOf(target), []core.HeldPosition{held(btcID, "BTC", "0.050")})
	assert.Empty(t, intents)
}

func TestReconcile_LiquidatesUndesired(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)

	intents := r.Reconcile(valuationOf(), []core.HeldPosition{
		held(testCashID, "USD", "100"),
		held(ethID, "ETH", "2"),
	})
	require.Len(t, intents, 1)

	sell := intents[0]
	assert.Equal(t, ethID, sell.InstrumentID)
	assert.Equal(t, core.SideSell, sell.Side)
	assert.Equal(t, ReasonLiquidate, sell.Reason)
	req := sell.Request(testStrategyID)
	assert.True(t, req.Amount.Valid)
	assert.True(t, req.Amount.Decimal.Equal(d("2")))
	assert.False(t, req.Total.Valid)
}

func TestReconcile_LiquidationIgnoresValue(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)

	// a worthless instrument is still sold in full
	intents := r.Reconcile(valuationOf(), []core.HeldPosition{held("dust", "DUST", "5")})
	require.Len(t, intents, 1)
	assert.True(t, intents[0].Size.Equal(d("5")))
	assert.Equal(t, ReasonLiquidate, intents[0].Reason)
}

func TestReconcile_NeverTradesCash(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)

	intents := r.Reconcile(valuationOf(), []core.HeldPosition{
		held(testCashID, "USD", "100"),
		held("other-cash-id", "USD", "5"),
	})
	assert.Empty(t, intents)
}

func TestReconcile_SkipsNonPositiveHoldings(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)

	intents := r.Reconcile(valuationOf(), []core.HeldPosition{
		held(ethID, "ETH", "0"),
		held(solID, "SOL", "-3"),
	})
	assert.Empty(t, intents)
}

func TestReconcile_SumsDuplicateHoldings(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	target := Target{InstrumentID: ethID, Symbol: "ETH", Amount: d("3"), ReferencePrice: d("3000")}

	intents := r.Reconcile(valuationOf(target), []core.HeldPosition{
		held(ethID, "ETH", "1"),
		held(ethID, "ETH", "1.5"),
	})
	require.Len(t, intents, 1)
	assert.Equal(t, core.SideBuy, intents[0].Side)
	assert.True(t, intents[0].Quantity.Equal(d("0.5")))
	assert.True(t, intents[0].Size.Equal(d("1500")))
}

func TestReconcile_OrderingAdjustmentsThenLiquidations(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	v := valuationOf(
		Target{InstrumentID: btcID, Symbol: "BTC", Amount: d("1"), ReferencePrice: d("60000")},
		Target{InstrumentID: ethID, Symbol: "ETH", Amount: d("1"), ReferencePrice: d("3000")},
	)

	intents := r.Reconcile(v, []core.HeldPosition{
		held("doge", "DOGE", "10"),
		held(ethID, "ETH", "4"),
		held("ada", "ADA", "7"),
	})
	require.Len(t, intents, 4)

	got := make([]string, 0, len(intents))
	for _, i := range intents {
		got = append(got, string(i.Side)+":"+i.InstrumentID)
	}
	assert.Equal(t, []string{"buy:" + btcID, "sell:" + ethID, "sell:doge", "sell:ada"}, got)
}

func TestReconcile_FieldExclusivity(t *testing.T) {
	r := NewReconciler(testSettings(), nopLogger)
	v := valuationOf(
		Target{InstrumentID: btcID, Symbol: "BTC", Amount: d("0.3"), ReferencePrice: d("60000")},
		Target{InstrumentID: ethID, Symbol: "ETH", Amount: d("0.1"), ReferencePrice: d("3000")},
	)

	intents := r.Reconcile(v, []core.HeldPosition{
		held(ethID, "ETH", "2"),
		held(solID, "SOL", "9"),
	})
	require.NotEmpty(t, intents)
	for _, intent := range intents {
		req := intent.Request(testStrategyID)
		assert.True(t, req.Amount.Valid != req.Total.Valid, "exactly one of amount/total for %s", intent.Symbol)
		if req.Side == core.SideBuy {
			assert.True(t, req.Total.Valid)
		} else {
			assert.True(t, req.Amount.Valid)
		}
		assert.True(t, intent.Size.GreaterThan(decimal.Zero))
	}
}
