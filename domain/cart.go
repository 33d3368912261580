package domain

import (
	"encoding/json"
	"fmt"
)

// CartItem mirrors the item shape the storefront sends and the gateway echoes
// back inside the callback blob.
type CartItem struct {
	ProductID  int64           `json:"id"`
	UnitPrice  Money           `json:"price"`
	Quantity   int             `json:"cartQuantity"`
	Dimensions json.RawMessage `json:"dimensions,omitempty"`
	Code       string          `json:"code,omitempty"`
}

type Cart []CartItem

// Subtotal is the sum of unitPrice * quantity over all lines.
func (c Cart) Subtotal() Money {
	total := NewMoney(0)
	for _, item := range c {
		total = total.Plus(item.UnitPrice.Times(int64(item.Quantity)))
	}
	return total
}

func (c Cart) TotalQuantity() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

func (c Cart) Validate() error {
	if len(c) == 0 {
		return &ValidationError{Field: "cartItems", Reason: "cart items are required"}
	}
	for i, item := range c {
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("cartItems[%d].cartQuantity", i), Reason: "quantity must be positive"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("cartItems[%d].price", i), Reason: "price must not be negative"}
		}
	}
	return nil
}
