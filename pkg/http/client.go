// Package http is the resilient JSON transport shared by the trading API clients.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"strategy_rebalancer/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response is buffered
const maxBodyBytes = 4 << 20

// APIError is a non-2xx response. Body holds the raw payload for the caller to decode.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Signer attaches credentials to an outgoing request
type Signer interface {
	SignRequest(req *http.Request) error
}

type policy struct {
	maxRetries      int
	backoffMin      time.Duration
	backoffMax      time.Duration
	breakerFailures uint
	breakerWindow   uint
	breakerDelay    time.Duration
}

var defaultPolicy = policy{
	maxRetries:      3,
	backoffMin:      100 * time.Millisecond,
	backoffMax:      2 * time.Second,
	breakerFailures: 5,
	breakerWindow:   10,
	breakerDelay:    10 * time.Second,
}

// Option customizes a Client
type Option func(*Client)

// WithRateLimit throttles outgoing requests to limit per second with the given burst.
// A non-positive limit disables throttling.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRetries sets how often an idempotent read is retried and the backoff bounds
func WithRetries(maxRetries int, backoffMin, backoffMax time.Duration) Option {
	return func(c *Client) {
		c.policy.maxRetries = maxRetries
		c.policy.backoffMin = backoffMin
		c.policy.backoffMax = backoffMax
	}
}

// WithBreaker opens the circuit after failures out of the last window calls and
// keeps it open for delay.
func WithBreaker(failures, window uint, delay time.Duration) Option {
	return func(c *Client) {
		c.policy.breakerFailures = failures
		c.policy.breakerWindow = window
		c.policy.breakerDelay = delay
	}
}

// Client sends JSON requests through failsafe pipelines.
// Reads use retry + circuit breaker. Writes use only the breaker, since a retried
// POST could place an order twice. Both share one breaker so a failing venue
// stops writes and reads alike.
type Client struct {
	client  *http.Client
	baseURL string
	signer  Signer
	limiter *rate.Limiter
	policy  policy

	reads  failsafe.Executor[*http.Response]
	writes failsafe.Executor[*http.Response]

	tracer trace.Tracer
	inst   instruments
}

type instruments struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func newInstruments() instruments {
	meter := telemetry.GetMeter("http-client")
	requests, _ := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	failures, _ := meter.Int64Counter("http_errors_total",
		metric.WithDescription("Total number of failed HTTP requests"))
	latency, _ := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"))
	return instruments{requests: requests, failures: failures, latency: latency}
}

func (i instruments) record(ctx context.Context, method, path string, elapsed time.Duration, status int, err error) {
	attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("path", path))
	i.requests.Add(ctx, 1, attrs)
	i.latency.Record(ctx, elapsed.Seconds(), attrs)

	switch {
	case err != nil:
		i.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.String("reason", "transport"),
		))
	case status >= 400:
		i.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.Int("status", status),
		))
	}
}

// NewClient creates a client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, signer Signer, opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		signer:  signer,
		policy:  defaultPolicy,
		tracer:  telemetry.GetTracer("http-client"),
		inst:    newInstruments(),
	}
	for _, opt := range opts {
		opt(c)
	}

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			return err != nil || resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(c.policy.breakerFailures, c.policy.breakerWindow).
		WithDelay(c.policy.breakerDelay).
		Build()

	retry := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(c.policy.backoffMin, c.policy.backoffMax).
		WithMaxRetries(c.policy.maxRetries).
		ReturnLastFailure().
		Build()

	c.reads = failsafe.With[*http.Response](retry, breaker)
	c.writes = failsafe.With[*http.Response](breaker)
	return c
}

// Get sends a GET request. Repeated keys in params become repeated query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	return c.do(req, nil, c.reads)
}

// Post sends body as JSON. It is attempted once.
func (c *Client) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, payload, c.writes)
}

func (c *Client) do(req *http.Request, payload []byte, pipeline failsafe.Executor[*http.Response]) ([]byte, error) {
	ctx, span := c.tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	if c.signer != nil {
		if err := c.signer.SignRequest(req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sign")
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	start := time.Now()
	attempts := 0
	resp, err := pipeline.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		attempts = exec.Attempts()
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		attempt := req.Clone(ctx)
		if payload != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(payload))
			attempt.ContentLength = int64(len(payload))
		}
		if !exec.IsFirstAttempt() {
			span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", exec.Attempts())))
		}
		return c.client.Do(attempt)
	})
	span.SetAttributes(attribute.Int("http.attempts", attempts))

	if err != nil {
		c.inst.record(ctx, req.Method, req.URL.Path, time.Since(start), 0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.inst.record(ctx, req.Method, req.URL.Path, time.Since(start), resp.StatusCode, nil)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
