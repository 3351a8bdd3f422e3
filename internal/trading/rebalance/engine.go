// Package rebalance implements a one-shot strategy rebalance: resolve desired symbols
// to instruments, scale desired weights onto the strategy's value, diff against held
// positions and submit the resulting market orders in a fixed sequence.
package rebalance

import (
	"context"
	"errors"
	"time"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs rebalance passes against one strategy. It holds no state between runs.
type Engine struct {
	api        core.ITradingAPI
	settings   Settings
	resolver   *Resolver
	reconciler *Reconciler
	sequencer  *Sequencer
	logger     core.ILogger
	tracer     trace.Tracer
	metrics    *telemetry.MetricsHolder
	now        func() time.Time
}

// NewEngine wires the pipeline stages around api
func NewEngine(api core.ITradingAPI, settings Settings, logger core.ILogger) *Engine {
	logger = logger.WithField("strategy_id", settings.StrategyID)
	return &Engine{
		api:        api,
		settings:   settings,
		resolver:   NewResolver(api, settings, logger),
		reconciler: NewReconciler(settings, logger),
		sequencer:  NewSequencer(api, settings, logger),
		logger:     logger.WithField("component", "rebalance_engine"),
		tracer:     telemetry.GetTracer("rebalance-engine"),
		metrics:    telemetry.GetGlobalMetrics(),
		now:        time.Now,
	}
}

// Run performs a single rebalance pass. The returned report is never nil and
// describes everything done up to the point of failure.
func (e *Engine) Run(ctx context.Context, desired []DesiredPosition) (report *Report, err error) {
	start := e.now()
	report = &Report{
		RunID:        uuid.NewString(),
		StrategyID:   e.settings.StrategyID,
		BaseCurrency: e.settings.BaseCurrency,
		DryRun:       e.settings.DryRun,
		StartedAt:    start,
	}
	logger := e.logger.WithField("run_id", report.RunID)

	ctx, span := e.tracer.Start(ctx, "Rebalance", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.String("strategy_id", e.settings.StrategyID),
		attribute.Bool("dry_run", e.settings.DryRun),
	))
	defer func() {
		report.Elapsed = e.now().Sub(start)
		report.Err = err
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("Rebalance failed", "stage", failedStage(err), "error", err, "elapsed", report.Elapsed.String())
		} else {
			logger.Info("Rebalance completed", "orders", len(report.Executions), "elapsed", report.Elapsed.String())
		}
		e.metrics.RecordRun(ctx, outcome, report.Elapsed)
		span.End()
	}()

	logger.Info("Starting rebalance", "positions", len(desired), "dry_run", e.settings.DryRun)

	strategy, err := e.api.GetStrategy(ctx, e.settings.StrategyID)
	if err != nil {
		return report, external(StageGetStrategy, err)
	}
	report.StrategyName = strategy.Name
	report.AssetClass = strategy.AssetClass

	resolved, err := e.resolver.Resolve(ctx, desired, strategy)
	if err != nil {
		return report, err
	}
	report.Resolved = resolved

	strategyValue, err := e.api.GetStrategyValue(ctx, e.settings.StrategyID)
	if err != nil {
		return report, external(StageGetStrategyValue, err)
	}

	valuation, err := Valuate(resolved, strategyValue)
	if err != nil {
		return report, err
	}
	report.Valuation = valuation
	e.metrics.SetValuation(e.settings.StrategyID, strategyValue.InexactFloat64(), valuation.TotalDesiredValue.InexactFloat64())
	logger.Info("Valuation computed",
		"total_desired_value", valuation.TotalDesiredValue.String(),
		"strategy_value", strategyValue.String(),
	)

	if e.settings.DryRun {
		return report, e.plan(ctx, report, valuation)
	}

	cancel, err := e.sequencer.CancelOpenOrders(ctx)
	report.Cancel = cancel
	if err != nil {
		return report, err
	}

	held, err := e.api.GetPositions(ctx, e.settings.StrategyID)
	if err != nil {
		return report, external(StageGetPositions, err)
	}

	intents := e.reconciler.Reconcile(valuation, held)
	report.Planned = intents
	if err := e.sequencer.ValidateAll(intents); err != nil {
		return report, err
	}

	executions, err := e.sequencer.Submit(ctx, intents)
	report.Executions = executions
	return report, err
}

// plan runs the read-only half of a pass and records what would be sent
func (e *Engine) plan(ctx context.Context, report *Report, valuation *Valuation) error {
	open, err := e.sequencer.ListOpenOrders(ctx)
	if err != nil {
		return err
	}
	report.Cancel = &CancelResult{Found: len(open)}

	held, err := e.api.GetPositions(ctx, e.settings.StrategyID)
	if err != nil {
		return external(StageGetPositions, err)
	}

	intents := e.reconciler.Reconcile(valuation, held)
	report.Planned = intents
	return e.sequencer.ValidateAll(intents)
}

func failedStage(err error) string {
	var ext *ExternalServiceError
	var res *ResolutionError
	var deg *DegenerateWeightsError
	var mal *MalformedOrderError
	switch {
	case errors.As(err, &ext):
		return ext.Stage
	case errors.As(err, &res):
		return "resolve"
	case errors.As(err, &deg):
		return "valuate"
	case errors.As(err, &mal):
		return "validate"
	default:
		return "unknown"
	}
}
