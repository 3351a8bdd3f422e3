package rebalance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_SummaryAfterRun(t *testing.T) {
	api := newCryptoAccount("500")
	api.SetHolding(ethID, d("2"))
	api.SetStrategyValue(d("500"))

	report, err := NewEngine(api, testSettings(), nopLogger).Run(context.Background(), desired(t, "USD", "1000", "BTC", "0.1"))
	require.NoError(t, err)

	summary := report.Summary()
	assert.Contains(t, summary, "for strategy "+testStrategyID+" (Test Strategy)")
	assert.Contains(t, summary, "Desired value 7000 USD, strategy value 500 USD")
	assert.Contains(t, summary, "Cancelled 0 of 0 open orders")
	assert.Contains(t, summary, "Bought 0.0071428571428571428571428571 BTC for 428.571428571428571428571426 USD (order ord-1)")
	assert.Contains(t, summary, "Sold all 2 ETH (order ord-2)")
	assert.Contains(t, summary, "Rebalance completed in")
}

func TestReport_SummaryDryRun(t *testing.T) {
	r := &Report{
		RunID:        "run-1",
		StrategyID:   testStrategyID,
		BaseCurrency: "USD",
		DryRun:       true,
		Cancel:       &CancelResult{Found: 3},
		Planned: []OrderIntent{
			NewBuyIntent(btcID, "BTC", d("600"), d("0.01")),
			NewSellIntent(ethID, "ETH", d("0.5"), ReasonAdjust),
		},
	}

	summary := r.Summary()
	assert.Contains(t, summary, "[dry run]")
	assert.Contains(t, summary, "Would cancel 3 open orders")
	assert.Contains(t, summary, "Would buy 0.01 BTC for 600 USD")
	assert.Contains(t, summary, "Would sell 0.5 ETH")
	assert.NotContains(t, summary, "already on target")
}

func TestReport_SummaryPartialFailure(t *testing.T) {
	failure := &ExternalServiceError{Stage: StageSubmitOrder, Err: errors.New("rejected")}
	planned := []OrderIntent{
		NewBuyIntent(btcID, "BTC", d("600"), d("0.01")),
		NewBuyIntent(solID, "SOL", d("150"), d("1")),
		NewSellIntent(ethID, "ETH", d("2"), ReasonLiquidate),
	}
	r := &Report{
		RunID:        "run-2",
		StrategyID:   testStrategyID,
		BaseCurrency: "USD",
		Elapsed:      1500 * time.Millisecond,
		Cancel: &CancelResult{
			Found:     2,
			Cancelled: []string{"o-1"},
			Failed:    []CancelFailure{{OrderID: "o-2", Err: errors.New("locked")}},
		},
		Planned: planned,
		Executions: []Execution{
			{Intent: planned[0], OrderID: "x-1"},
			{Intent: planned[1], Err: failure},
		},
		Err: failure,
	}

	summary := r.Summary()
	assert.Contains(t, summary, "Cancelled 1 of 2 open orders")
	assert.Contains(t, summary, "Cancel failed for order o-2: locked")
	assert.Contains(t, summary, "Bought 0.01 BTC for 600 USD (order x-1)")
	assert.Contains(t, summary, "Failed to buy 1 SOL for 150 USD: submit_order: rejected")
	assert.Contains(t, summary, "1 planned orders not submitted")
	assert.Contains(t, summary, "Rebalance failed after 1.5s: submit_order: rejected")
	assert.Len(t, r.Placed(), 1)
}

func TestReport_SummaryOnTarget(t *testing.T) {
	r := &Report{RunID: "run-3", StrategyID: testStrategyID, BaseCurrency: "USD"}
	assert.Contains(t, r.Summary(), "Portfolio already on target, no orders needed")
}
