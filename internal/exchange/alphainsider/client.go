// Package alphainsider implements core.ITradingAPI against the AlphaInsider REST API
package alphainsider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"strategy_rebalancer/internal/config"
	"strategy_rebalancer/internal/core"
	apperrors "strategy_rebalancer/pkg/errors"
	pkghttp "strategy_rebalancer/pkg/http"
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

const (
	pathGetStrategies     = "/getStrategies"
	pathGetStrategyValues = "/getStrategyValues"
	pathGetStocks         = "/getStocks"
	pathGetOrders         = "/getOrders"
	pathDeleteOrder       = "/deleteOrder"
	pathNewOrder          = "/newOrder"
	pathGetPositions      = "/getPositions"
)

// apiKeySigner puts the raw API key in the authorization header
type apiKeySigner struct {
	key config.Secret
}

func (s apiKeySigner) SignRequest(req *http.Request) error {
	if s.key == "" {
		return apperrors.ErrAuthenticationFailed
	}
	req.Header.Set("authorization", s.key.Reveal())
	req.Header.Set("Accept", "application/json")
	return nil
}

// Client talks to the AlphaInsider API
type Client struct {
	http   *pkghttp.Client
	logger core.ILogger
}

// NewClient creates a client from the API section of the configuration
func NewClient(cfg config.APIConfig, logger core.ILogger, opts ...pkghttp.Option) *Client {
	opts = append([]pkghttp.Option{pkghttp.WithRateLimit(cfg.RateLimit, cfg.RateBurst)}, opts...)
	return &Client{
		http:   pkghttp.NewClient(cfg.BaseURL, cfg.Timeout(), apiKeySigner{key: cfg.APIKey}, opts...),
		logger: logger.WithField("component", "alphainsider_client"),
	}
}

// GetStrategy fetches strategy metadata
func (c *Client) GetStrategy(ctx context.Context, strategyID string) (*core.Strategy, error) {
	var strategies []strategyDTO
	if err := c.get(ctx, pathGetStrategies, url.Values{"strategy_id": {strategyID}}, &strategies); err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: strategy %s not returned", apperrors.ErrInvalidResponse, strategyID)
	}
	s := strategies[0]
	return &core.Strategy{
		ID:         s.StrategyID,
		Name:       s.Name,
		AssetClass: core.AssetClass(s.Type),
	}, nil
}

// GetStrategyValue fetches the strategy's current total value
func (c *Client) GetStrategyValue(ctx context.Context, strategyID string) (decimal.Decimal, error) {
	var values []strategyValueDTO
	if err := c.get(ctx, pathGetStrategyValues, url.Values{"strategy_id": {strategyID}}, &values); err != nil {
		return decimal.Zero, err
	}
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no value for strategy %s", apperrors.ErrInvalidResponse, strategyID)
	}
	value, err := requireDecimal(values[0].StrategyValue, "strategy_value")
	if err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// GetInstruments looks up instruments by symbol:venue keys
func (c *Client) GetInstruments(ctx context.Context, lookupKeys []string) ([]core.Instrument, error) {
	for _, k := range lookupKeys {
		if len(k) > 50 {
			return nil, fmt.Errorf("%w: lookup key %q longer than 50 characters", apperrors.ErrInvalidParameter, k)
		}
	}

	var stocks []stockDTO
	if err := c.get(ctx, pathGetStocks, url.Values{"stock_id": lookupKeys}, &stocks); err != nil {
		return nil, err
	}

	instruments := make([]core.Instrument, 0, len(stocks))
	for _, s := range stocks {
		last, err := optionalDecimal(s.Last)
		if err != nil {
			c.logger.Warn("Ignoring unparsable last price", "stock_id", s.StockID, "error", err)
			last = decimal.NullDecimal{}
		}
		instruments = append(instruments, core.Instrument{
			ID:        s.StockID,
			Symbol:    s.Stock,
			LastPrice: last,
		})
	}
	return instruments, nil
}

// GetOpenOrders lists resting orders of the strategy
func (c *Client) GetOpenOrders(ctx context.Context, strategyID string) ([]core.OpenOrder, error) {
	var orders []orderDTO
	if err := c.get(ctx, pathGetOrders, url.Values{"strategy_id": {strategyID}}, &orders); err != nil {
		return nil, err
	}
	out := make([]core.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o.OrderID == "" {
			return nil, fmt.Errorf("%w: open order without order_id", apperrors.ErrInvalidResponse)
		}
		out = append(out, core.OpenOrder{
			ID:           o.OrderID,
			InstrumentID: o.StockID,
			Side:         core.Side(o.Action),
			Type:         core.OrderType(o.Type),
		})
	}
	return out, nil
}

// CancelOrder deletes one resting order
func (c *Client) CancelOrder(ctx context.Context, strategyID string, orderID string) error {
	body := map[string]interface{}{
		"strategy_id": strategyID,
		"order_id":    orderID,
	}
	_, err := c.post(ctx, pathDeleteOrder, body)
	return err
}

// GetPositions fetches held positions. The cash position is always present, so an
// empty list is treated as a malformed response.
func (c *Client) GetPositions(ctx context.Context, strategyID string) ([]core.HeldPosition, error) {
	var positions []positionDTO
	if err := c.get(ctx, pathGetPositions, url.Values{"strategy_id": {strategyID}}, &positions); err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: empty position list", apperrors.ErrInvalidResponse)
	}

	out := make([]core.HeldPosition, 0, len(positions))
	for _, p := range positions {
		amount, err := requireDecimal(p.Amount, "amount")
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", p.StockID, err)
		}
		symbol := p.Stock
		if symbol == "" {
			symbol = p.Symbol
		}
		out = append(out, core.HeldPosition{
			InstrumentID: p.StockID,
			Symbol:       symbol,
			Amount:       amount,
		})
	}
	return out, nil
}

// SubmitOrder places a new order
func (c *Client) SubmitOrder(ctx context.Context, req *core.SubmitOrderRequest) (*core.OrderAck, error) {
	body := map[string]interface{}{
		"strategy_id": req.StrategyID,
		"stock_id":    req.InstrumentID,
		"action":      string(req.Side),
		"type":        string(req.Type),
	}
	if req.Amount.Valid {
		body["amount"] = tradingutils.FormatDecimal(req.Amount.Decimal)
	}
	if req.Total.Valid {
		body["total"] = tradingutils.FormatDecimal(req.Total.Decimal)
	}
	if req.Price.Valid {
		body["price"] = tradingutils.FormatDecimal(req.Price.Decimal)
	}
	if req.StopPrice.Valid {
		body["stop_price"] = tradingutils.FormatDecimal(req.StopPrice.Decimal)
	}

	raw, err := c.post(ctx, pathNewOrder, body)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrOrderRejected, err)
		}
		return nil, err
	}

	var ack ackDTO
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &ack); err != nil {
			c.logger.Debug("Order response is not an object", "response", string(raw))
		}
	}
	return &core.OrderAck{OrderID: ack.OrderID, Message: ack.Message}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	data, err := c.http.Get(ctx, path, params)
	if err != nil {
		return mapError(path, err)
	}
	raw, err := unwrap(path, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidResponse, path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := c.http.Post(ctx, path, body)
	if err != nil {
		return nil, mapError(path, err)
	}
	return unwrap(path, data)
}

// unwrap extracts the response member of the API envelope. Bodies without an
// envelope are returned whole.
func unwrap(path string, data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidResponse, path, err)
	}
	if env.Status == "error" {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrOrderRejected, path, env.message())
	}
	if env.Response == nil {
		return json.RawMessage(data), nil
	}
	return env.Response, nil
}

func mapError(path string, err error) error {
	var apiErr *pkghttp.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", path, err)
	}

	msg := string(apiErr.Body)
	var env envelope
	if json.Unmarshal(apiErr.Body, &env) == nil && env.message() != "" {
		msg = env.message()
	}

	var kind error
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		kind = apperrors.ErrAuthenticationFailed
	case apiErr.StatusCode == http.StatusNotFound:
		kind = apperrors.ErrNotFound
	case apiErr.StatusCode == http.StatusTooManyRequests:
		kind = apperrors.ErrRateLimitExceeded
	case apiErr.StatusCode >= 500:
		kind = apperrors.ErrServiceUnavailable
	default:
		kind = apperrors.ErrInvalidParameter
	}
	return fmt.Errorf("%w: %s: status %d: %s", kind, path, apiErr.StatusCode, msg)
}
