package core

import (
	"github.com/shopspring/decimal"
)

// AssetClass is the strategy type reported by the remote API
type AssetClass string

const (
	AssetClassCryptocurrency AssetClass = "cryptocurrency"
	AssetClassStock          AssetClass = "stock"
)

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid reports whether the side is one the API accepts
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType is the execution type of an order
type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLimit  OrderType = "stop_limit"
	OrderTypeStopMarket OrderType = "stop_market"
	OrderTypeOCO        OrderType = "oco"
)

// IsValid reports whether the order type is one the API accepts
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLimit, OrderTypeStopMarket, OrderTypeOCO:
		return true
	}
	return false
}

// RequiresPrice is true for the limit family
func (t OrderType) RequiresPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit || t == OrderTypeOCO
}

// RequiresStopPrice is true for the stop family
func (t OrderType) RequiresStopPrice() bool {
	return t == OrderTypeStopLimit || t == OrderTypeStopMarket || t == OrderTypeOCO
}

// Strategy is the account being rebalanced
type Strategy struct {
	ID         string
	Name       string
	AssetClass AssetClass
}

// Instrument is a tradable asset returned by an instrument lookup
type Instrument struct {
	ID     string
	Symbol string
	// LastPrice is invalid when the venue has not reported a trade yet
	LastPrice decimal.NullDecimal
}

// HeldPosition is a holding reported by the remote account
type HeldPosition struct {
	InstrumentID string
	Symbol       string
	Amount       decimal.Decimal
}

// OpenOrder is a resting order on the remote account
type OpenOrder struct {
	ID           string
	InstrumentID string
	Side         Side
	Type         OrderType
}

// SubmitOrderRequest is the wire-level order. Exactly one of Amount and Total is
// expected to be set, according to Side.
type SubmitOrderRequest struct {
	StrategyID   string
	InstrumentID string
	Side         Side
	Type         OrderType
	Amount       decimal.NullDecimal
	Total        decimal.NullDecimal
	Price        decimal.NullDecimal
	StopPrice    decimal.NullDecimal
}

// OrderAck is the remote acknowledgement of a submitted order
type OrderAck struct {
	OrderID string
	Message string
}
