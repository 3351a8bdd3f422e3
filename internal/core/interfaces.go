// Package core defines the core interfaces for the strategy rebalancer
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ITradingAPI defines the remote strategy account operations the rebalancer depends on.
// Every call blocks until the remote side answers; implementations must not retry
// non-idempotent operations (CancelOrder, SubmitOrder).
type ITradingAPI interface {
	// Strategy metadata
	GetStrategy(ctx context.Context, strategyID string) (*Strategy, error)
	GetStrategyValue(ctx context.Context, strategyID string) (decimal.Decimal, error)

	// Market data
	GetInstruments(ctx context.Context, lookupKeys []string) ([]Instrument, error)

	// Order operations
	GetOpenOrders(ctx context.Context, strategyID string) ([]OpenOrder, error)
	CancelOrder(ctx context.Context, strategyID string, orderID string) error
	SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*OrderAck, error)

	// Account operations
	GetPositions(ctx context.Context, strategyID string) ([]HeldPosition, error)
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
