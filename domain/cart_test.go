package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_Totals(t *testing.T) {
	cart := Cart{
		{ProductID: 1, UnitPrice: NewMoney(100000), Quantity: 2},
		{ProductID: 2, UnitPrice: NewMoney(25000), Quantity: 3},
	}

	assert.True(t, cart.Subtotal().Equal(NewMoney(275000)))
	assert.Equal(t, 5, cart.TotalQuantity())
}

func TestCart_EmptySubtotal(t *testing.T) {
	assert.True(t, Cart{}.Subtotal().IsZero())
}

func TestCart_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cart      Cart
		wantField string
	}{
		{name: "valid", cart: Cart{{ProductID: 1, UnitPrice: NewMoney(1), Quantity: 1}}},
		{name: "empty", cart: Cart{}, wantField: "cartItems"},
		{name: "zero quantity", cart: Cart{{ProductID: 1, UnitPrice: NewMoney(1)}}, wantField: "cartItems[0].cartQuantity"},
		{
			name:      "negative price",
			cart:      Cart{{ProductID: 1, UnitPrice: NewMoney(1), Quantity: 1}, {ProductID: 2, UnitPrice: NewMoney(-1), Quantity: 1}},
			wantField: "cartItems[1].price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cart.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestCartItem_JSONShape(t *testing.T) {
	var cart Cart
	require.NoError(t, json.Unmarshal([]byte(`[{"id":7,"price":"1500","cartQuantity":2,"dimensions":{"w":1},"code":"SKU7"}]`), &cart))
	require.Len(t, cart, 1)
	assert.Equal(t, int64(7), cart[0].ProductID)
	assert.True(t, cart[0].UnitPrice.Equal(NewMoney(1500)))
	assert.JSONEq(t, `{"w":1}`, string(cart[0].Dimensions))
	assert.Equal(t, "SKU7", cart[0].Code)
}

func TestNewOrderPayload(t *testing.T) {
	cart := Cart{
		{ProductID: 1, UnitPrice: NewMoney(100000), Quantity: 2, Code: "A"},
		{ProductID: 2, UnitPrice: NewMoney(50000), Quantity: 1},
	}
	p := NewOrderPayload(cart, "buyer-1", json.RawMessage(`{"city":"Hanoi"}`), NewMoney(250000), NewMoney(280000))

	require.Len(t, p.Lines, 2)
	assert.Equal(t, int64(1), p.Lines[0].Product)
	assert.Equal(t, "A", p.Lines[0].Code)
	assert.Equal(t, 3, p.TotalQuantity)
	assert.Equal(t, "buyer-1", p.CustomerID)
	assert.Equal(t, DeliveryStatusPending, p.DeliveryStatus)
	assert.Equal(t, PaymentStatusCompleted, p.PaymentStatus)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "order_products")
	assert.EqualValues(t, 280000, raw["total"])
	assert.EqualValues(t, 250000, raw["subtotal"])
}
