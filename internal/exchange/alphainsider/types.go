package alphainsider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "strategy_rebalancer/pkg/errors"
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Response json.RawMessage `json:"response"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type strategyDTO struct {
	StrategyID string `json:"strategy_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
}

type strategyValueDTO struct {
	StrategyID    string          `json:"strategy_id"`
	StrategyValue json.RawMessage `json:"strategy_value"`
}

type stockDTO struct {
	StockID  string          `json:"stock_id"`
	Symbol   string          `json:"symbol"`
	Stock    string          `json:"stock"`
	Exchange string          `json:"exchange"`
	Last     json.RawMessage `json:"last"`
}

type orderDTO struct {
	OrderID string `json:"order_id"`
	StockID string `json:"stock_id"`
	Action  string `json:"action"`
	Type    string `json:"type"`
}

type positionDTO struct {
	PositionID string          `json:"position_id"`
	StockID    string          `json:"stock_id"`
	Symbol     string          `json:"symbol"`
	Stock      string          `json:"stock"`
	Amount     json.RawMessage `json:"amount"`
}

type ackDTO struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// optionalDecimal decodes a JSON string or number. Missing, null and empty values
// yield an invalid NullDecimal.
func optionalDecimal(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.NullDecimal{}, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}, err
		}
	}
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := tradingutils.ParseDecimal(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func requireDecimal(raw json.RawMessage, field string) (decimal.Decimal, error) {
	v, err := optionalDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidResponse, field, err)
	}
	if !v.Valid {
		return decimal.Zero, fmt.Errorf("%w: %s is missing", apperrors.ErrInvalidResponse, field)
	}
	return v.Decimal, nil
}
