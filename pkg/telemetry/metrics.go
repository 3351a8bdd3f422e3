package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricRunsTotal         = "rebalancer_runs_total"
	MetricOrdersSubmitted   = "rebalancer_orders_submitted_total"
	MetricOrderFailures     = "rebalancer_order_failures_total"
	MetricOrdersCancelled   = "rebalancer_orders_cancelled_total"
	MetricCancelFailures    = "rebalancer_cancel_failures_total"
	MetricRunDuration       = "rebalancer_run_duration_seconds"
	MetricStrategyValue     = "rebalancer_strategy_value"
	MetricTotalDesiredValue = "rebalancer_total_desired_value"
)

// MetricsHolder holds initialized instruments. Recording methods are no-ops until
// InitMetrics has been called.
type MetricsHolder struct {
	RunsTotal       metric.Int64Counter
	OrdersSubmitted metric.Int64Counter
	OrderFailures   metric.Int64Counter
	OrdersCancelled metric.Int64Counter
	CancelFailures  metric.Int64Counter
	RunDuration     metric.Float64Histogram
	StrategyValue   metric.Float64ObservableGauge
	DesiredValue    metric.Float64ObservableGauge

	mu               sync.RWMutex
	initialized      bool
	strategyValueMap map[string]float64
	desiredValueMap  map[string]float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			strategyValueMap: make(map[string]float64),
			desiredValueMap:  make(map[string]float64),
		}
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.RunsTotal, err = meter.Int64Counter(MetricRunsTotal, metric.WithDescription("Rebalance runs by outcome"))
	if err != nil {
		return err
	}

	m.OrdersSubmitted, err = meter.Int64Counter(MetricOrdersSubmitted, metric.WithDescription("Orders accepted by the trading API"))
	if err != nil {
		return err
	}

	m.OrderFailures, err = meter.Int64Counter(MetricOrderFailures, metric.WithDescription("Orders rejected or failed before acknowledgement"))
	if err != nil {
		return err
	}

	m.OrdersCancelled, err = meter.Int64Counter(MetricOrdersCancelled, metric.WithDescription("Stale open orders cancelled before rebalancing"))
	if err != nil {
		return err
	}

	m.CancelFailures, err = meter.Int64Counter(MetricCancelFailures, metric.WithDescription("Open orders that could not be cancelled"))
	if err != nil {
		return err
	}

	m.RunDuration, err = meter.Float64Histogram(MetricRunDuration, metric.WithDescription("Wall time of a rebalance run"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	m.StrategyValue, err = meter.Float64ObservableGauge(MetricStrategyValue, metric.WithDescription("Strategy value seen by the last run"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for id, val := range m.strategyValueMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("strategy_id", id)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.DesiredValue, err = meter.Float64ObservableGauge(MetricTotalDesiredValue, metric.WithDescription("Priced value of the desired positions in the last run"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for id, val := range m.desiredValueMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("strategy_id", id)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()
	return nil
}

func (m *MetricsHolder) ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// RecordRun counts a finished run and its duration
func (m *MetricsHolder) RecordRun(ctx context.Context, outcome string, elapsed time.Duration) {
	if !m.ready() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordOrder counts a submitted order
func (m *MetricsHolder) RecordOrder(ctx context.Context, side, reason string) {
	if !m.ready() {
		return
	}
	m.OrdersSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("side", side),
		attribute.String("reason", reason),
	))
}

// RecordOrderFailure counts an order that did not get acknowledged
func (m *MetricsHolder) RecordOrderFailure(ctx context.Context, side string) {
	if !m.ready() {
		return
	}
	m.OrderFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("side", side)))
}

// RecordCancel counts one cancellation attempt
func (m *MetricsHolder) RecordCancel(ctx context.Context, ok bool) {
	if !m.ready() {
		return
	}
	if ok {
		m.OrdersCancelled.Add(ctx, 1)
		return
	}
	m.CancelFailures.Add(ctx, 1)
}

// SetValuation stores the values observed by the gauges
func (m *MetricsHolder) SetValuation(strategyID string, strategyValue, desiredValue float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategyValueMap[strategyID] = strategyValue
	m.desiredValueMap[strategyID] = desiredValue
}
