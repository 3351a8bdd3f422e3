package rebalance

import (
	"strategy_rebalancer/internal/core"
	"strategy_rebalancer/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// Reconciler diffs target amounts against a held-position snapshot
type Reconciler struct {
	baseCurrency     string
	cashInstrumentID string
	logger           core.ILogger
}

// NewReconciler creates a reconciler that never trades the cash instrument
func NewReconciler(settings Settings, logger core.ILogger) *Reconciler {
	return &Reconciler{
		baseCurrency:     settings.BaseCurrency,
		cashInstrumentID: settings.CashInstrumentID,
		logger:           logger.WithField("component", "reconciler"),
	}
}

func (r *Reconciler) isCash(p core.HeldPosition) bool {
	return p.InstrumentID == r.cashInstrumentID || p.Symbol == r.baseCurrency
}

// heldBook aggregates held amounts by instrument, keeping first-seen order
type heldBook struct {
	order   []string
	amounts map[string]decimal.Decimal
	symbols map[string]string
}

func newHeldBook(held []core.HeldPosition) *heldBook {
	b := &heldBook{
		amounts: make(map[string]decimal.Decimal, len(held)),
		symbols: make(map[string]string, len(held)),
	}
	for _, p := range held {
		if _, ok := b.amounts[p.InstrumentID]; !ok {
			b.order = append(b.order, p.InstrumentID)
			b.amounts[p.InstrumentID] = decimal.Zero
			b.symbols[p.InstrumentID] = p.Symbol
		}
		b.amounts[p.InstrumentID] = b.amounts[p.InstrumentID].Add(p.Amount)
	}
	return b
}

// Reconcile emits adjustment intents for every target in order, then full-liquidation
// sells for held instruments missing from the target set.
func (r *Reconciler) Reconcile(v *Valuation, held []core.HeldPosition) []OrderIntent {
	book := newHeldBook(held)
	var intents []OrderIntent

	wanted := make(map[string]bool, len(v.Targets))
	for _, t := range v.Targets {
		wanted[t.InstrumentID] = true

		heldAmount := book.amounts[t.InstrumentID]
		delta := t.Amount.Sub(heldAmount)

		switch delta.Sign() {
		case 1:
			total := tradingutils.Notional(delta, t.ReferencePrice)
			intents = append(intents, NewBuyIntent(t.InstrumentID, t.Symbol, total, delta))
		case -1:
			intents = append(intents, NewSellIntent(t.InstrumentID, t.Symbol, delta.Abs(), ReasonAdjust))
		default:
			r.logger.Debug("Position already on target", "symbol", t.Symbol, "amount", t.Amount.String())
		}
	}

	for _, id := range book.order {
		if wanted[id] {
			continue
		}
		p := core.HeldPosition{InstrumentID: id, Symbol: book.symbols[id], Amount: book.amounts[id]}
		if r.isCash(p) {
			continue
		}
		if !p.Amount.IsPositive() {
			if p.Amount.IsNegative() {
				r.logger.Warn("Skipping liquidation of non-positive holding", "symbol", p.Symbol, "amount", p.Amount.String())
			}
			continue
		}
		intents = append(intents, NewSellIntent(id, p.Symbol, p.Amount, ReasonLiquidate))
	}

	return intents
}
