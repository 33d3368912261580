package service

import (
	"context"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/forwarder"
	"github.com/fjod/payment_relay/internal/gateway"
)

// TransactionCreator is the create half of the gateway client.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req d.TransactionRequest) (*gateway.CreateResult, error)
}

// StatusChecker is the status half of the gateway client.
type StatusChecker interface {
	GetStatus(ctx context.Context, transactionID string) (*gateway.Status, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, payload d.OrderPayload, deviceToken string) (*forwarder.Result, error)
}
