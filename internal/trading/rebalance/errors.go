package rebalance

import (
	"fmt"
	"strings"
)

// Stage names used in ExternalServiceError
const (
	StageGetStrategy      = "get_strategy"
	StageGetInstruments   = "get_instruments"
	StageGetStrategyValue = "get_strategy_value"
	StageGetOpenOrders    = "get_open_orders"
	StageCancelOrders     = "cancel_orders"
	StageGetPositions     = "get_positions"
	StageSubmitOrder      = "submit_order"
)

// ResolutionError reports desired positions that could not be mapped to a tradable
// instrument with a usable price. No order has been cancelled or placed when it is returned.
type ResolutionError struct {
	Unresolved []string
	Duplicates []string
}

func (e *ResolutionError) Error() string {
	var parts []string
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate symbols: %s", strings.Join(e.Duplicates, ", ")))
	}
	if len(e.Unresolved) > 0 {
		parts = append(parts, fmt.Sprintf("no instrument or price for: %s", strings.Join(e.Unresolved, ", ")))
	}
	return "instrument resolution failed: " + strings.Join(parts, "; ")
}

// DegenerateWeightsError is returned when the desired positions have no priced value
type DegenerateWeightsError struct {
	Positions int
}

func (e *DegenerateWeightsError) Error() string {
	return fmt.Sprintf("desired portfolio of %d positions has zero priced value", e.Positions)
}

// MalformedOrderError marks an order that breaks a structural rule. It is never
// sent to the remote API and indicates a bug in intent construction.
type MalformedOrderError struct {
	InstrumentID string
	Reason       string
}

func (e *MalformedOrderError) Error() string {
	return fmt.Sprintf("malformed order for %q: %s", e.InstrumentID, e.Reason)
}

// ExternalServiceError wraps a failed trading API call with the stage it happened in
type ExternalServiceError struct {
	Stage string
	Err   error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func external(stage string, err error) error {
	return &ExternalServiceError{Stage: stage, Err: err}
}
