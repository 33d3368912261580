package domain

import "encoding/json"

const (
	DeliveryStatusPending  = "pending"
	PaymentStatusCompleted = "completed"
)

type OrderLine struct {
	Product    int64           `json:"product"`
	Quantity   int             `json:"quantity"`
	Price      Money           `json:"price"`
	Dimensions json.RawMessage `json:"dimensions"`
	Code       string          `json:"code"`
}

// OrderPayload is the body the commerce backend expects on order creation.
type OrderPayload struct {
	Lines          []OrderLine     `json:"order_products"`
	CustomerID     string          `json:"customer_id"`
	Address        json.RawMessage `json:"address"`
	TotalQuantity  int             `json:"total_quantity"`
	Subtotal       Money           `json:"subtotal"`
	Total          Money           `json:"total"`
	DeliveryStatus string          `json:"delivery_status"`
	PaymentStatus  string          `json:"payment_status"`
}

func NewOrderPayload(cart Cart, buyerID string, address json.RawMessage, subtotal, total Money) OrderPayload {
	lines := make([]OrderLine, 0, len(cart))
	for _, item := range cart {
		lines = append(lines, OrderLine{
			Product:    item.ProductID,
			Quantity:   item.Quantity,
			Price:      item.UnitPrice,
			Dimensions: item.Dimensions,
			Code:       item.Code,
		})
	}
	return OrderPayload{
		Lines:          lines,
		CustomerID:     buyerID,
		Address:        address,
		TotalQuantity:  cart.TotalQuantity(),
		Subtotal:       subtotal,
		Total:          total,
		DeliveryStatus: DeliveryStatusPending,
		PaymentStatus:  PaymentStatusCompleted,
	}
}
