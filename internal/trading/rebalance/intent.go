package rebalance

import (
	"fmt"

	"strategy_rebalancer/internal/core"

	"github.com/shopspring/decimal"
)

// Reason tells why an intent was emitted
type Reason string

const (
	// ReasonAdjust moves a desired instrument towards its target amount
	ReasonAdjust Reason = "adjust"
	// ReasonLiquidate exits an instrument that is no longer desired
	ReasonLiquidate Reason = "liquidate"
)

// OrderIntent is a market instruction tagged by side. Size is a currency total for a
// buy and an instrument amount for a sell; the two can never both be set.
type OrderIntent struct {
	InstrumentID string
	Symbol       string
	Side         core.Side
	Type         core.OrderType
	Size         decimal.Decimal
	// Quantity is the instrument amount the intent is expected to move. For sells it
	// equals Size; for buys it is the delta that was priced into Size.
	Quantity decimal.Decimal
	Reason   Reason
}

// NewBuyIntent builds a market buy spending total
func NewBuyIntent(instrumentID, symbol string, total, quantity decimal.Decimal) OrderIntent {
	return OrderIntent{
		InstrumentID: instrumentID,
		Symbol:       symbol,
		Side:         core.SideBuy,
		Type:         core.OrderTypeMarket,
		Size:         total,
		Quantity:     quantity,
		Reason:       ReasonAdjust,
	}
}

// NewSellIntent builds a market sell disposing of amount
func NewSellIntent(instrumentID, symbol string, amount decimal.Decimal, reason Reason) OrderIntent {
	return OrderIntent{
		InstrumentID: instrumentID,
		Symbol:       symbol,
		Side:         core.SideSell,
		Type:         core.OrderTypeMarket,
		Size:         amount,
		Quantity:     amount,
		Reason:       reason,
	}
}

// Amount is the instrument quantity of a sell
func (o OrderIntent) Amount() (decimal.Decimal, bool) {
	if o.Side != core.SideSell {
		return decimal.Zero, false
	}
	return o.Size, true
}

// Total is the currency spend of a buy
func (o OrderIntent) Total() (decimal.Decimal, bool) {
	if o.Side != core.SideBuy {
		return decimal.Zero, false
	}
	return o.Size, true
}

// Request converts the intent to its wire form for strategyID
func (o OrderIntent) Request(strategyID string) *core.SubmitOrderRequest {
	req := &core.SubmitOrderRequest{
		StrategyID:   strategyID,
		InstrumentID: o.InstrumentID,
		Side:         o.Side,
		Type:         o.Type,
	}
	if amount, ok := o.Amount(); ok {
		req.Amount = decimal.NewNullDecimal(amount)
	}
	if total, ok := o.Total(); ok {
		req.Total = decimal.NewNullDecimal(total)
	}
	return req
}

// Describe renders the intent as a one-line human summary
func (o OrderIntent) Describe(baseCurrency string) string {
	switch {
	case o.Side == core.SideBuy:
		return fmt.Sprintf("Buy %s %s for %s %s", o.Quantity.String(), o.Symbol, o.Size.String(), baseCurrency)
	case o.Reason == ReasonLiquidate:
		return fmt.Sprintf("Sell all %s %s", o.Size.String(), o.Symbol)
	default:
		return fmt.Sprintf("Sell %s %s", o.Size.String(), o.Symbol)
	}
}
