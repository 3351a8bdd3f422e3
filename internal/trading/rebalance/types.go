package rebalance

import (
	"fmt"
	"strings"

	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// DesiredPosition is one target holding supplied by the operator
type DesiredPosition struct {
	Symbol string
	Amount decimal.Decimal
}

// ParseDesiredPosition builds a DesiredPosition from its textual form
func ParseDesiredPosition(symbol, amount string) (DesiredPosition, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return DesiredPosition{}, fmt.Errorf("empty symbol")
	}
	d, err := tradingutils.ParseDecimal(amount)
	if err != nil {
		return DesiredPosition{}, fmt.Errorf("position %s: %w", symbol, err)
	}
	if d.IsNegative() {
		return DesiredPosition{}, fmt.Errorf("position %s: negative amount %s", symbol, amount)
	}
	return DesiredPosition{Symbol: symbol, Amount: d}, nil
}

// ResolvedPosition is a desired position bound to a tradable instrument and a price
type ResolvedPosition struct {
	DesiredPosition
	InstrumentID   string
	ReferencePrice decimal.Decimal
	// Cash marks the base-currency position, which is valued but never traded
	Cash bool
}

// Value is amount times reference price
func (p ResolvedPosition) Value() decimal.Decimal {
	return tradingutils.Notional(p.Amount, p.ReferencePrice)
}

// Settings carries the per-run conventions of the remote platform
type Settings struct {
	StrategyID       string
	BaseCurrency     string
	CashInstrumentID string
	// CashLookupKey is the symbol:venue form of the cash instrument; it is never a valid order target
	CashLookupKey        string
	CryptoVenue          string
	AbortOnCancelFailure bool
	DryRun               bool
}
