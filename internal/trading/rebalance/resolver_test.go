package rebalance

import (
	"context"
	"errors"
	"testing"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/internal/mock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_LookupKeys(t *testing.T) {
	r := NewResolver(nil, testSettings(), nopLogger)
	want := desired(t, "USD", "1000", "BTC", "0.1", "ETH", "2")

	crypto := &core.Strategy{AssetClass: core.AssetClassCryptocurrency}
	assert.Equal(t, []string{"BTC:COINBASE", "ETH:COINBASE"}, r.LookupKeys(want, crypto))

	stock := &core.Strategy{AssetClass: core.AssetClassStock}
	assert.Equal(t, []string{"BTC:", "ETH:"}, r.LookupKeys(want, stock))
}

func TestResolver_Resolve(t *testing.T) {
	api := newCryptoAccount("0")
	r := NewResolver(api, testSettings(), nopLogger)
	strategy := &core.Strategy{AssetClass: core.AssetClassCryptocurrency}

	resolved, err := r.Resolve(context.Background(), desired(t, "USD", "1000", "BTC", "0.1"), strategy)
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	assert.True(t, resolved[0].Cash)
	assert.Equal(t, testCashID, resolved[0].InstrumentID)
	assert.True(t, resolved[0].ReferencePrice.Equal(decimal.NewFromInt(1)))

	assert.False(t, resolved[1].Cash)
	assert.Equal(t, btcID, resolved[1].InstrumentID)
	assert.True(t, resolved[1].ReferencePrice.Equal(d("60000")))

	// one batched lookup for all non-cash symbols
	assert.Equal(t, 1, api.CallCount(mock.CallGetInstruments))
	assert.Equal(t, [][]string{{"BTC:COINBASE"}}, api.LookupKeys())
}

func TestResolver_CashOnlySkipsLookup(t *testing.T) {
	api := newCryptoAccount("0")
	r := NewResolver(api, testSettings(), nopLogger)

	resolved, err := r.Resolve(context.Background(), desired(t, "USD", "1"), &core.Strategy{})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Zero(t, api.CallCount(mock.CallGetInstruments))
}

func TestResolver_Unresolved(t *testing.T) {
	tests := []struct {
		name        string
		instruments []core.Instrument
	}{
		{
			name: "symbol not returned",
		},
		{
			name:        "missing price",
			instruments: []core.Instrument{{ID: "doge", Symbol: "DOGE"}},
		},
		{
			name:        "zero price",
			instruments: []core.Instrument{priced("doge", "DOGE", "0")},
		},
		{
			name:        "negative price",
			instruments: []core.Instrument{priced("doge", "DOGE", "-1")},
		},
		{
			name:        "empty id",
			instruments: []core.Instrument{priced("", "DOGE", "0.1")},
		},
	}

	r := NewResolver(nil, testSettings(), nopLogger)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Match(desired(t, "USD", "10", "DOGE", "100"), tt.instruments)
			require.Error(t, err)

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, []string{"DOGE"}, resErr.Unresolved)
		})
	}
}

func TestResolver_FirstMatchWins(t *testing.T) {
	r := NewResolver(nil, testSettings(), nopLogger)
	resolved, err := r.Match(desired(t, "BTC", "1"), []core.Instrument{
		priced("btc-a", "BTC", "100"),
		priced("btc-b", "BTC", "200"),
	})
	require.NoError(t, err)
	assert.Equal(t, "btc-a", resolved[0].InstrumentID)
}

func TestResolver_DuplicateSymbols(t *testing.T) {
	api := newCryptoAccount("0")
	r := NewResolver(api, testSettings(), nopLogger)

	_, err := r.Resolve(context.Background(), desired(t, "BTC", "1", "ETH", "1", "BTC", "2"), &core.Strategy{})
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"BTC"}, resErr.Duplicates)
	assert.Zero(t, api.CallCount(mock.CallGetInstruments))
}

func TestResolver_LookupFailure(t *testing.T) {
	api := newCryptoAccount("0")
	api.FailOn(mock.CallGetInstruments, errors.New("boom"))
	r := NewResolver(api, testSettings(), nopLogger)

	_, err := r.Resolve(context.Background(), desired(t, "BTC", "1"), &core.Strategy{})
	var extErr *ExternalServiceError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, StageGetInstruments, extErr.Stage)
}
