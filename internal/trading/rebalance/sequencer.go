package rebalance

import (
	"context"
	"errors"
	"fmt"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxInstrumentIDLength = 50

// CancelFailure records an open order that could not be cancelled
type CancelFailure struct {
	OrderID string
	Err     error
}

// CancelResult summarizes the pre-run cancellation sweep
type CancelResult struct {
	Found     int
	Cancelled []string
	Failed    []CancelFailure
}

// Execution is the outcome of submitting one intent
type Execution struct {
	Intent  OrderIntent
	OrderID string
	Err     error
}

// Sequencer clears resting orders and then submits intents strictly one at a time
type Sequencer struct {
	api                  core.ITradingAPI
	strategyID           string
	blocked              map[string]bool
	abortOnCancelFailure bool
	logger               core.ILogger
	tracer               trace.Tracer
	metrics              *telemetry.MetricsHolder
}

// NewSequencer creates a sequencer bound to one strategy
func NewSequencer(api core.ITradingAPI, settings Settings, logger core.ILogger) *Sequencer {
	blocked := map[string]bool{}
	for _, id := range []string{settings.CashInstrumentID, settings.CashLookupKey} {
		if id != "" {
			blocked[id] = true
		}
	}
	return &Sequencer{
		api:                  api,
		strategyID:           settings.StrategyID,
		blocked:              blocked,
		abortOnCancelFailure: settings.AbortOnCancelFailure,
		logger:               logger.WithField("component", "sequencer"),
		tracer:               telemetry.GetTracer("rebalance-sequencer"),
		metrics:              telemetry.GetGlobalMetrics(),
	}
}

// ListOpenOrders returns the resting orders without touching them
func (s *Sequencer) ListOpenOrders(ctx context.Context) ([]core.OpenOrder, error) {
	orders, err := s.api.GetOpenOrders(ctx, s.strategyID)
	if err != nil {
		return nil, external(StageGetOpenOrders, err)
	}
	return orders, nil
}

// CancelOpenOrders attempts to cancel every open order. Individual failures do not
// stop the sweep; they are returned in the result and, when the sequencer is set to
// abort on cancel failure, also as an ExternalServiceError.
func (s *Sequencer) CancelOpenOrders(ctx context.Context) (*CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "CancelOpenOrders")
	defer span.End()

	orders, err := s.ListOpenOrders(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &CancelResult{Found: len(orders)}
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return result, external(StageCancelOrders, err)
		}
		if err := s.api.CancelOrder(ctx, s.strategyID, o.ID); err != nil {
			s.logger.Warn("Failed to cancel open order", "order_id", o.ID, "error", err)
			s.metrics.RecordCancel(ctx, false)
			result.Failed = append(result.Failed, CancelFailure{OrderID: o.ID, Err: err})
			continue
		}
		s.metrics.RecordCancel(ctx, true)
		result.Cancelled = append(result.Cancelled, o.ID)
	}

	span.SetAttributes(
		attribute.Int("orders.found", result.Found),
		attribute.Int("orders.failed", len(result.Failed)),
	)

	if len(result.Failed) > 0 {
		errs := make([]error, 0, len(result.Failed))
		for _, f := range result.Failed {
			errs = append(errs, fmt.Errorf("order %s: %w", f.OrderID, f.Err))
		}
		joined := errors.Join(errs...)
		if s.abortOnCancelFailure {
			span.SetStatus(codes.Error, "cancel failures")
			return result, external(StageCancelOrders, joined)
		}
		s.logger.Warn("Continuing with stale open orders", "failed", len(result.Failed), "error", joined)
	}

	return result, nil
}

// Validate checks the structural rules of a wire order before it can be sent
func (s *Sequencer) Validate(req *core.SubmitOrderRequest) error {
	malformed := func(reason string) error {
		return &MalformedOrderError{InstrumentID: req.InstrumentID, Reason: reason}
	}

	if req.InstrumentID == "" {
		return malformed("instrument id is required")
	}
	if len(req.InstrumentID) > maxInstrumentIDLength {
		return malformed(fmt.Sprintf("instrument id longer than %d characters", maxInstrumentIDLength))
	}
	if s.blocked[req.InstrumentID] {
		return malformed("cash instrument cannot be traded")
	}
	if !req.Side.IsValid() {
		return malformed(fmt.Sprintf("invalid side %q", req.Side))
	}
	if !req.Type.IsValid() {
		return malformed(fmt.Sprintf("invalid order type %q", req.Type))
	}

	switch req.Side {
	case core.SideBuy:
		if req.Amount.Valid {
			return malformed("amount is not allowed for buy orders")
		}
		if !req.Total.Valid {
			return malformed("total is required for buy orders")
		}
		if !req.Total.Decimal.IsPositive() {
			return malformed("total must be positive")
		}
	case core.SideSell:
		if req.Total.Valid {
			return malformed("total is not allowed for sell orders")
		}
		if !req.Amount.Valid {
			return malformed("amount is required for sell orders")
		}
		if !req.Amount.Decimal.IsPositive() {
			return malformed("amount must be positive")
		}
	}

	if req.Type.RequiresPrice() && !req.Price.Valid {
		return malformed(fmt.Sprintf("price is required for %s orders", req.Type))
	}
	if req.Price.Valid && !req.Price.Decimal.IsPositive() {
		return malformed("price must be positive")
	}
	if req.Type.RequiresStopPrice() && !req.StopPrice.Valid {
		return malformed(fmt.Sprintf("stop price is required for %s orders", req.Type))
	}
	if req.StopPrice.Valid && !req.StopPrice.Decimal.IsPositive() {
		return malformed("stop price must be positive")
	}

	return nil
}

// ValidateAll checks every intent up front so a malformed plan places nothing
func (s *Sequencer) ValidateAll(intents []OrderIntent) error {
	for _, intent := range intents {
		if err := s.Validate(intent.Request(s.strategyID)); err != nil {
			return err
		}
	}
	return nil
}

// Submit sends intents in order, stopping at the first failure. The executions made
// so far are returned alongside the error; nothing already placed is rolled back.
func (s *Sequencer) Submit(ctx context.Context, intents []OrderIntent) ([]Execution, error) {
	executions := make([]Execution, 0, len(intents))
	for _, intent := range intents {
		exec, err := s.submitOne(ctx, intent)
		executions = append(executions, exec)
		if err != nil {
			return executions, err
		}
	}
	return executions, nil
}

func (s *Sequencer) submitOne(ctx context.Context, intent OrderIntent) (Execution, error) {
	ctx, span := s.tracer.Start(ctx, "SubmitOrder",
		trace.WithAttributes(
			attribute.String("instrument_id", intent.InstrumentID),
			attribute.String("side", string(intent.Side)),
			attribute.String("reason", string(intent.Reason)),
		),
	)
	defer span.End()

	exec := Execution{Intent: intent}
	req := intent.Request(s.strategyID)
	if err := s.Validate(req); err != nil {
		exec.Err = err
		span.RecordError(err)
		return exec, err
	}

	ack, err := s.api.SubmitOrder(ctx, req)
	if err != nil {
		exec.Err = external(StageSubmitOrder, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		s.metrics.RecordOrderFailure(ctx, string(intent.Side))
		s.logger.Error("Order submission failed", "symbol", intent.Symbol, "side", intent.Side, "error", err)
		return exec, exec.Err
	}

	if ack != nil {
		exec.OrderID = ack.OrderID
	}
	s.metrics.RecordOrder(ctx, string(intent.Side), string(intent.Reason))
	s.logger.Info("Order submitted",
		"symbol", intent.Symbol,
		"side", intent.Side,
		"size", intent.Size.String(),
		"order_id", exec.OrderID,
	)
	return exec, nil
}
