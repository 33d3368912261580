package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	d "github.com/fjod/payment_relay/domain"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  int64
		discounts d.DiscountSet
		want      string
	}{
		{name: "no discounts adds shipping", subtotal: 200000, want: "230000"},
		{name: "free shipping", subtotal: 200000, discounts: d.DiscountSet{d.DiscountFreeShipping}, want: "200000"},
		{name: "ten percent off subtotal only", subtotal: 200000, discounts: d.DiscountSet{d.DiscountTenPercent}, want: "210000"},
		{name: "both", subtotal: 200000, discounts: d.DiscountSet{d.DiscountTenPercent, d.DiscountFreeShipping}, want: "180000"},
		{name: "unknown token ignored", subtotal: 1000, discounts: d.DiscountSet{"blackFriday"}, want: "31000"},
		{name: "duplicate tokens apply once", subtotal: 1000, discounts: d.DiscountSet{d.DiscountTenPercent, d.DiscountTenPercent}, want: "30900"},
		{name: "zero subtotal free shipping", subtotal: 0, discounts: d.DiscountSet{d.DiscountFreeShipping}, want: "0"},
		{name: "fractional result stays exact", subtotal: 5, discounts: d.DiscountSet{d.DiscountFreeShipping, d.DiscountTenPercent}, want: "4.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(d.NewMoney(tt.subtotal), tt.discounts)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTotal_BothDiscountsIsExactlyNinetyPercent(t *testing.T) {
	both := d.DiscountSet{d.DiscountFreeShipping, d.DiscountTenPercent}
	for _, s := range []string{"0", "1", "3", "99.99", "100000", "123456789"} {
		subtotal, err := d.ParseMoney(s)
		assert.NoError(t, err)
		want := subtotal.Mul(decimal.RequireFromString("0.9"))
		assert.True(t, Total(subtotal, both).Decimal.Equal(want), "subtotal %s", s)
	}
}

func TestTotal_MonotonicInSubtotal(t *testing.T) {
	sets := []d.DiscountSet{
		nil,
		{d.DiscountFreeShipping},
		{d.DiscountTenPercent},
		{d.DiscountFreeShipping, d.DiscountTenPercent},
	}
	for _, set := range sets {
		prev := Total(d.NewMoney(0), set)
		for s := int64(1); s <= 500000; s += 7919 {
			cur := Total(d.NewMoney(s), set)
			assert.True(t, cur.GreaterThanOrEqual(prev.Decimal), "set %v subtotal %d", set, s)
			prev = cur
		}
	}
}

func TestForCart_EndToEndExample(t *testing.T) {
	cart := d.Cart{{ProductID: 1, UnitPrice: d.NewMoney(100000), Quantity: 2}}

	q := ForCart(cart, d.DiscountSet{d.DiscountFreeShipping})

	assert.Equal(t, "200000", q.Subtotal.String())
	assert.Equal(t, "0", q.Shipping.String())
	assert.Equal(t, "200000", q.Total.String())
}
