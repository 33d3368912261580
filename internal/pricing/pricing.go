// Package pricing turns a cart subtotal and discount tokens into the payable
// total. Both the checkout path and the callback path use it, so the two sides
// of a transaction always agree on arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"

	d "github.com/fjod/payment_relay/domain"
)

var (
	// ShippingFee is added to every order before discounts.
	ShippingFee = d.NewMoney(30000)

	// PercentOff is the fraction of the subtotal removed by DiscountTenPercent.
	PercentOff = decimal.NewFromFloat(0.1)
)

type Quote struct {
	Subtotal d.Money
	Shipping d.Money
	Discount d.Money
	Total    d.Money
}

// Total applies the fixed policy: shipping is added, waived entirely by the
// free-shipping token, and the percentage token reduces the subtotal only.
// Unknown tokens are ignored.
func Total(subtotal d.Money, discounts d.DiscountSet) d.Money {
	return Calculate(subtotal, discounts).Total
}

func Calculate(subtotal d.Money, discounts d.DiscountSet) Quote {
	q := Quote{
		Subtotal: subtotal,
		Shipping: ShippingFee,
		Discount: d.NewMoney(0),
	}
	if discounts.Has(d.DiscountFreeShipping) {
		q.Shipping = d.NewMoney(0)
	}
	if discounts.Has(d.DiscountTenPercent) {
		q.Discount = d.MoneyFromDecimal(subtotal.Mul(PercentOff))
	}
	q.Total = subtotal.Plus(q.Shipping).Minus(q.Discount)
	return q
}

// ForCart computes the quote from the cart lines themselves.
func ForCart(cart d.Cart, discounts d.DiscountSet) Quote {
	return Calculate(cart.Subtotal(), discounts)
}
