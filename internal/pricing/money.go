package pricing

import (
	"bytes"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// Round2 rounds a currency value to two decimal places. Halves are rounded
// toward positive infinity, so 0.125 becomes 0.13 and -0.125 becomes -0.12.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Mul(hundred).Add(half).Floor().Div(hundred)
}

// percentOf returns round2(base × pct/100).
func percentOf(base decimal.Decimal, pct float64) decimal.Decimal {
	return Round2(base.Mul(decimal.NewFromFloat(pct)).Div(hundred))
}

// Money is a currency amount that serializes as a plain JSON number with
// two decimal places.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d rounded to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Round2(d)}
}

// MoneyFromFloat converts a float amount and rounds it to cents.
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// Float returns the amount as a float64, for callers that compare or log it.
func (m Money) Float() float64 {
	return m.InexactFloat64()
}
