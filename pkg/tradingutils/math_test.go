package tradingutils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal(" 0.10 ")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("0.1")))

	_, err = ParseDecimal("")
	assert.Error(t, err)
	_, err = ParseDecimal("1e")
	assert.Error(t, err)
}

func TestScaleShare(t *testing.T) {
	got := ScaleShare(decimal.RequireFromString("0.1"), decimal.NewFromInt(7000), decimal.NewFromInt(500))
	assert.Equal(t, "0.0071428571428571428571428571", got.String())

	// exact when the quotient terminates
	got = ScaleShare(decimal.NewFromInt(1), decimal.NewFromInt(4), decimal.NewFromInt(10))
	assert.Equal(t, "2.5", got.String())
}

func TestQuotientRoundsLastDigit(t *testing.T) {
	got := Quotient(decimal.NewFromInt(2), decimal.NewFromInt(3))
	assert.Equal(t, "0.6666666666666666666666666667", got.String())
}

func TestNotionalAndFormat(t *testing.T) {
	n := Notional(decimal.RequireFromString("0.0071428571428571428571428571"), decimal.NewFromInt(60000))
	assert.Equal(t, "428.571428571428571428571426", FormatDecimal(n))
	assert.Equal(t, "2", FormatDecimal(decimal.RequireFromString("2.000")))
}
