package rebalance

import (
	"testing"

	"strategy_rebalancer/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIntent_Request(t *testing.T) {
	buy := NewBuyIntent(btcID, "BTC", d("428.5"), d("0.007"))
	req := buy.Request(testStrategyID)
	assert.Equal(t, testStrategyID, req.StrategyID)
	assert.Equal(t, btcID, req.InstrumentID)
	assert.Equal(t, core.SideBuy, req.Side)
	assert.Equal(t, core.OrderTypeMarket, req.Type)
	require.True(t, req.Total.Valid)
	assert.True(t, req.Total.Decimal.Equal(d("428.5")))
	assert.False(t, req.Amount.Valid)
	assert.False(t, req.Price.Valid)
	assert.False(t, req.StopPrice.Valid)

	sell := NewSellIntent(ethID, "ETH", d("2"), ReasonLiquidate)
	req = sell.Request(testStrategyID)
	assert.Equal(t, core.SideSell, req.Side)
	require.True(t, req.Amount.Valid)
	assert.True(t, req.Amount.Decimal.Equal(d("2")))
	assert.False(t, req.Total.Valid)
}

func TestOrderIntent_Describe(t *testing.T) {
	assert.Equal(t, "Buy 0.5 BTC for 30000 USD", NewBuyIntent(btcID, "BTC", d("30000"), d("0.5")).Describe("USD"))
	assert.Equal(t, "Sell all 2 ETH", NewSellIntent(ethID, "ETH", d("2"), ReasonLiquidate).Describe("USD"))
	assert.Equal(t, "Sell 0.25 ETH", NewSellIntent(ethID, "ETH", d("0.25"), ReasonAdjust).Describe("USD"))
}

func TestParseDesiredPosition(t *testing.T) {
	p, err := ParseDesiredPosition(" BTC ", "0.10")
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.Symbol)
	assert.True(t, p.Amount.Equal(d("0.1")))

	_, err = ParseDesiredPosition("", "1")
	assert.Error(t, err)
	_, err = ParseDesiredPosition("BTC", "abc")
	assert.Error(t, err)
	_, err = ParseDesiredPosition("BTC", "-1")
	assert.Error(t, err)
}
