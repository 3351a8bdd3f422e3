package rebalance

import (
	"testing"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/internal/mock"
	"strategy_rebalancer/pkg/logging"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testStrategyID = "strat-1"
	testCashID     = "ubfhvYUsgvMIuJPwr76My"
	btcID          = "btc-coinbase"
	ethID          = "eth-coinbase"
	solID          = "sol-coinbase"
)

func testSettings() Settings {
	return Settings{
		StrategyID:           testStrategyID,
		BaseCurrency:         "USD",
		CashInstrumentID:     testCashID,
		CashLookupKey:        "USD:ALPHAINSIDER",
		CryptoVenue:          "COINBASE",
		AbortOnCancelFailure: true,
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func priced(id, symbol, price string) core.Instrument {
	return core.Instrument{ID: id, Symbol: symbol, LastPrice: decimal.NewNullDecimal(d(price))}
}

func desired(t *testing.T, pairs ...string) []DesiredPosition {
	t.Helper()
	require.Zero(t, len(pairs)%2)
	out := make([]DesiredPosition, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		p, err := ParseDesiredPosition(pairs[i], pairs[i+1])
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

// newCryptoAccount returns an account holding only cash with BTC, ETH and SOL listed
func newCryptoAccount(cash string) *mock.MockTradingAPI {
	api := mock.NewMockTradingAPI(core.Strategy{
		ID:         testStrategyID,
		Name:       "Test Strategy",
		AssetClass: core.AssetClassCryptocurrency,
	}, testCashID, d(cash))
	api.AddInstrument(priced(btcID, "BTC", "60000"))
	api.AddInstrument(priced(ethID, "ETH", "3000"))
	api.AddInstrument(priced(solID, "SOL", "150"))
	return api
}

var nopLogger = logging.NewNopLogger()
