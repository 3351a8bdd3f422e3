package rebalance

import (
	"fmt"
	"strings"
	"time"

	"strategy_rebalancer/internal/core"
)

// Report is the operator-facing record of one run
type Report struct {
	RunID        string
	StrategyID   string
	StrategyName string
	AssetClass   core.AssetClass
	BaseCurrency string
	DryRun       bool
	StartedAt    time.Time
	Elapsed      time.Duration

	Resolved   []ResolvedPosition
	Valuation  *Valuation
	Cancel     *CancelResult
	Planned    []OrderIntent
	Executions []Execution
	Err        error
}

// Succeeded reports whether the run finished without error
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// Placed returns the executions the remote API acknowledged
func (r *Report) Placed() []Execution {
	var placed []Execution
	for _, e := range r.Executions {
		if e.Err == nil {
			placed = append(placed, e)
		}
	}
	return placed
}

// Summary renders the run as human-readable lines
func (r *Report) Summary() string {
	var b strings.Builder

	header := fmt.Sprintf("Rebalance %s for strategy %s", r.RunID, r.StrategyID)
	if r.StrategyName != "" {
		header += fmt.Sprintf(" (%s)", r.StrategyName)
	}
	if r.DryRun {
		header += " [dry run]"
	}
	b.WriteString(header + "\n")

	if r.Valuation != nil {
		fmt.Fprintf(&b, "Desired value %s %s, strategy value %s %s\n",
			r.Valuation.TotalDesiredValue.String(), r.BaseCurrency,
			r.Valuation.StrategyValue.String(), r.BaseCurrency)
	}

	if r.Cancel != nil {
		if r.DryRun {
			fmt.Fprintf(&b, "Would cancel %d open orders\n", r.Cancel.Found)
		} else {
			fmt.Fprintf(&b, "Cancelled %d of %d open orders\n", len(r.Cancel.Cancelled), r.Cancel.Found)
			for _, f := range r.Cancel.Failed {
				fmt.Fprintf(&b, "Cancel failed for order %s: %v\n", f.OrderID, f.Err)
			}
		}
	}

	if r.DryRun {
		for _, intent := range r.Planned {
			b.WriteString("Would " + lowerFirst(intent.Describe(r.BaseCurrency)) + "\n")
		}
	} else {
		for _, e := range r.Executions {
			if e.Err != nil {
				fmt.Fprintf(&b, "Failed to %s: %v\n", lowerFirst(e.Intent.Describe(r.BaseCurrency)), e.Err)
				continue
			}
			line := pastTense(e.Intent, r.BaseCurrency)
			if e.OrderID != "" {
				line += fmt.Sprintf(" (order %s)", e.OrderID)
			}
			b.WriteString(line + "\n")
		}
		if skipped := len(r.Planned) - len(r.Executions); skipped > 0 && r.Err != nil {
			fmt.Fprintf(&b, "%d planned orders not submitted\n", skipped)
		}
	}

	if len(r.Planned) == 0 && r.Err == nil {
		b.WriteString("Portfolio already on target, no orders needed\n")
	}

	if r.Err != nil {
		fmt.Fprintf(&b, "Rebalance failed after %s: %v\n", r.Elapsed.Round(time.Millisecond), r.Err)
	} else {
		fmt.Fprintf(&b, "Rebalance completed in %s\n", r.Elapsed.Round(time.Millisecond))
	}

	return b.String()
}

func pastTense(intent OrderIntent, baseCurrency string) string {
	switch {
	case intent.Side == core.SideBuy:
		return fmt.Sprintf("Bought %s %s for %s %s", intent.Quantity.String(), intent.Symbol, intent.Size.String(), baseCurrency)
	case intent.Reason == ReasonLiquidate:
		return fmt.Sprintf("Sold all %s %s", intent.Size.String(), intent.Symbol)
	default:
		return fmt.Sprintf("Sold %s %s", intent.Size.String(), intent.Symbol)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
