// Package publisher emits domain events about callbacks to Kafka so that
// operators and downstream systems can react to paid-but-unfulfilled orders.
package publisher

import (
	"context"
	"time"

	d "github.com/fjod/payment_relay/domain"
)

const (
	EventPaymentUnfulfilled = "PaymentUnfulfilled"
	EventOrderCompleted     = "OrderCompleted"
)

// PaymentUnfulfilled is emitted when money was captured but no order exists.
type PaymentUnfulfilled struct {
	TransactionID  string    `json:"transaction_id"`
	GatewayTransID int64     `json:"gateway_trans_id"`
	BuyerID        string    `json:"buyer_id"`
	Amount         d.Money   `json:"amount"`
	Total          d.Money   `json:"total"`
	Reason         string    `json:"reason"`
	StatusCode     int       `json:"status_code,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type OrderCompleted struct {
	TransactionID string    `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	BuyerID       string    `json:"buyer_id"`
	Total         d.Money   `json:"total"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	PaymentUnfulfilled(ctx context.Context, ev PaymentUnfulfilled) error
	OrderCompleted(ctx context.Context, ev OrderCompleted) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) PaymentUnfulfilled(context.Context, PaymentUnfulfilled) error { return nil }
func (Noop) OrderCompleted(context.Context, OrderCompleted) error         { return nil }
func (Noop) Close() error                                                 { return nil }
