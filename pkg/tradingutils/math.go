package tradingutils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by quotient helpers
const DivisionPrecision int32 = 28

// ParseDecimal parses a base-10 string. Empty input is an error.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal string")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// Quotient returns a / b rounded at DivisionPrecision fractional digits
func Quotient(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionPrecision)
}

// ScaleShare returns part / whole * scale. The product is taken before the division
// so only one rounding step happens.
func ScaleShare(part, whole, scale decimal.Decimal) decimal.Decimal {
	return Quotient(part.Mul(scale), whole)
}

// Notional returns amount * price
func Notional(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Mul(price)
}

// FormatDecimal renders a value for the wire without trailing zeros
func FormatDecimal(d decimal.Decimal) string {
	return d.String()
}
