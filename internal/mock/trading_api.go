package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// Method names recorded by MockTradingAPI
const (
	CallGetStrategy      = "GetStrategy"
	CallGetStrategyValue = "GetStrategyValue"
	CallGetInstruments   = "GetInstruments"
	CallGetOpenOrders    = "GetOpenOrders"
	CallCancelOrder      = "CancelOrder"
	CallSubmitOrder      = "SubmitOrder"
	CallGetPositions     = "GetPositions"
)

// MockTradingAPI implements core.ITradingAPI as an in-memory strategy account.
// Market orders fill immediately at the instrument's last price and move cash,
// so the strategy value is conserved across fills.
type MockTradingAPI struct {
	mu sync.Mutex

	strategy    core.Strategy
	cashID      string
	cash        decimal.Decimal
	instruments []core.Instrument
	holdings    map[string]decimal.Decimal
	holdOrder   []string
	extraHeld   []core.HeldPosition
	openOrders  []core.OpenOrder
	fixedValue  *decimal.Decimal

	orderCounter int

	// Failure injection keyed by call name
	errs       map[string]error
	cancelErrs map[string]error
	submitFail map[int]error

	calls       []string
	lookupKeys  [][]string
	submissions []*core.SubmitOrderRequest
	cancelled   []string
}

func NewMockTradingAPI(strategy core.Strategy, cashID string, cash decimal.Decimal) *MockTradingAPI {
	return &MockTradingAPI{
		strategy:   strategy,
		cashID:     cashID,
		cash:       cash,
		holdings:   make(map[string]decimal.Decimal),
		errs:       make(map[string]error),
		cancelErrs: make(map[string]error),
		submitFail: make(map[int]error),
	}
}

// AddInstrument makes an instrument available to lookups
func (m *MockTradingAPI) AddInstrument(inst core.Instrument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instruments = append(m.instruments, inst)
}

// SetHolding sets the held amount of an instrument
func (m *MockTradingAPI) SetHolding(instrumentID string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holdings[instrumentID]; !ok {
		m.holdOrder = append(m.holdOrder, instrumentID)
	}
	m.holdings[instrumentID] = amount
}

// AddRawPosition appends a position entry returned verbatim by GetPositions,
// for duplicate or odd entries the account would not produce from fills.
func (m *MockTradingAPI) AddRawPosition(p core.HeldPosition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extraHeld = append(m.extraHeld, p)
}

// AddOpenOrder adds a resting order
func (m *MockTradingAPI) AddOpenOrder(o core.OpenOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openOrders = append(m.openOrders, o)
}

// SetStrategyValue pins the reported strategy value instead of deriving it from holdings
func (m *MockTradingAPI) SetStrategyValue(v decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixedValue = &v
}

// FailOn makes every call of the named method return err
func (m *MockTradingAPI) FailOn(call string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[call] = err
}

// FailCancel makes cancelling orderID return err
func (m *MockTradingAPI) FailCancel(orderID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelErrs[orderID] = err
}

// FailSubmission makes the n-th submission (0-based) return err
func (m *MockTradingAPI) FailSubmission(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitFail[n] = err
}

func (m *MockTradingAPI) record(call string) error {
	m.calls = append(m.calls, call)
	return m.errs[call]
}

func (m *MockTradingAPI) GetStrategy(ctx context.Context, strategyID string) (*core.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallGetStrategy); err != nil {
		return nil, err
	}
	s := m.strategy
	return &s, nil
}

func (m *MockTradingAPI) GetStrategyValue(ctx context.Context, strategyID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallGetStrategyValue); err != nil {
		return decimal.Zero, err
	}
	if m.fixedValue != nil {
		return *m.fixedValue, nil
	}
	value := m.cash
	for id, amount := range m.holdings {
		if inst, ok := m.instrument(id); ok && inst.LastPrice.Valid {
			value = value.Add(amount.Mul(inst.LastPrice.Decimal))
		}
	}
	return value, nil
}

func (m *MockTradingAPI) GetInstruments(ctx context.Context, lookupKeys []string) ([]core.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupKeys = append(m.lookupKeys, append([]string(nil), lookupKeys...))
	if err := m.record(CallGetInstruments); err != nil {
		return nil, err
	}
	var out []core.Instrument
	for _, key := range lookupKeys {
		symbol := strings.SplitN(key, ":", 2)[0]
		for _, inst := range m.instruments {
			if inst.Symbol == symbol {
				out = append(out, inst)
			}
		}
	}
	return out, nil
}

func (m *MockTradingAPI) GetOpenOrders(ctx context.Context, strategyID string) ([]core.OpenOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallGetOpenOrders); err != nil {
		return nil, err
	}
	return append([]core.OpenOrder(nil), m.openOrders...), nil
}

func (m *MockTradingAPI) CancelOrder(ctx context.Context, strategyID string, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallCancelOrder); err != nil {
		return err
	}
	if err := m.cancelErrs[orderID]; err != nil {
		return err
	}
	for i, o := range m.openOrders {
		if o.ID == orderID {
			m.openOrders = append(m.openOrders[:i], m.openOrders[i+1:]...)
			m.cancelled = append(m.cancelled, orderID)
			return nil
		}
	}
	return fmt.Errorf("order %s not found", orderID)
}

func (m *MockTradingAPI) SubmitOrder(ctx context.Context, req *core.SubmitOrderRequest) (*core.OrderAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallSubmitOrder); err != nil {
		return nil, err
	}
	n := len(m.submissions)
	cp := *req
	m.submissions = append(m.submissions, &cp)
	if err := m.submitFail[n]; err != nil {
		return nil, err
	}

	inst, ok := m.instrument(req.InstrumentID)
	if !ok || !inst.LastPrice.Valid {
		return nil, fmt.Errorf("unknown instrument %s", req.InstrumentID)
	}
	price := inst.LastPrice.Decimal

	if _, ok := m.holdings[req.InstrumentID]; !ok {
		m.holdOrder = append(m.holdOrder, req.InstrumentID)
	}
	switch req.Side {
	case core.SideBuy:
		amount := tradingutils.Quotient(req.Total.Decimal, price)
		m.holdings[req.InstrumentID] = m.holdings[req.InstrumentID].Add(amount)
		m.cash = m.cash.Sub(req.Total.Decimal)
	case core.SideSell:
		m.holdings[req.InstrumentID] = m.holdings[req.InstrumentID].Sub(req.Amount.Decimal)
		m.cash = m.cash.Add(req.Amount.Decimal.Mul(price))
	}

	m.orderCounter++
	return &core.OrderAck{OrderID: fmt.Sprintf("ord-%d", m.orderCounter), Message: "success"}, nil
}

func (m *MockTradingAPI) GetPositions(ctx context.Context, strategyID string) ([]core.HeldPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(CallGetPositions); err != nil {
		return nil, err
	}
	out := []core.HeldPosition{{InstrumentID: m.cashID, Symbol: "USD", Amount: m.cash}}
	for _, id := range m.holdOrder {
		symbol := id
		if inst, ok := m.instrument(id); ok {
			symbol = inst.Symbol
		}
		out = append(out, core.HeldPosition{InstrumentID: id, Symbol: symbol, Amount: m.holdings[id]})
	}
	return append(out, m.extraHeld...), nil
}

func (m *MockTradingAPI) instrument(id string) (core.Instrument, bool) {
	for _, inst := range m.instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return core.Instrument{}, false
}

// Calls returns the method names invoked so far, in order
func (m *MockTradingAPI) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount counts invocations of one method
func (m *MockTradingAPI) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

// LookupKeys returns the key batches passed to GetInstruments
func (m *MockTradingAPI) LookupKeys() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.lookupKeys...)
}

// Submissions returns copies of every submitted request
func (m *MockTradingAPI) Submissions() []*core.SubmitOrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.SubmitOrderRequest(nil), m.submissions...)
}

// Cancelled returns the ids of cancelled orders
func (m *MockTradingAPI) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

// Holding returns the held amount of an instrument
func (m *MockTradingAPI) Holding(instrumentID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holdings[instrumentID]
}

// Cash returns the cash balance
func (m *MockTradingAPI) Cash() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash
}
