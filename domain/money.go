package domain

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in the gateway's currency unit. It marshals as a bare JSON
// number so the value sent to the gateway and the value covered by the MAC are
// the same string.
type Money struct {
	decimal.Decimal
}

func NewMoney(v int64) Money {
	return Money{decimal.NewFromInt(v)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

func (m Money) Plus(o Money) Money {
	return Money{m.Add(o.Decimal)}
}

func (m Money) Minus(o Money) Money {
	return Money{m.Sub(o.Decimal)}
}

func (m Money) Times(n int64) Money {
	return Money{m.Mul(decimal.NewFromInt(n))}
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}
