package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/gateway"
	"github.com/fjod/payment_relay/internal/pricing"
	"github.com/fjod/payment_relay/internal/signature"
	"github.com/fjod/payment_relay/pkg/logger"
)

const DefaultBankCode = "zalopayapp"

type CheckoutRequest struct {
	Items       d.Cart
	Address     json.RawMessage
	Discounts   d.DiscountSet
	BuyerID     string
	DeviceToken string
}

type CheckoutResponse struct {
	TransactionID string
	PaymentURL    string
	Total         d.Money
}

type CheckoutConfig struct {
	AppID       int64
	CallbackURL string
	BankCode    string
}

type CheckoutService interface {
	InitiatePayment(ctx context.Context, request *CheckoutRequest) (*CheckoutResponse, error)
}

type CheckoutServiceImpl struct {
	cfg     CheckoutConfig
	gateway TransactionCreator
	signer  *signature.RequestSigner
	now     func() time.Time
}

func NewCheckoutService(cfg CheckoutConfig, gw TransactionCreator, signer *signature.RequestSigner) *CheckoutServiceImpl {
	if cfg.BankCode == "" {
		cfg.BankCode = DefaultBankCode
	}
	return &CheckoutServiceImpl{cfg: cfg, gateway: gw, signer: signer, now: time.Now}
}

// InitiatePayment prices the cart, signs a transaction and registers it with
// the gateway. The cart and context travel inside the transaction because the
// callback is the only place they come back from.
func (s *CheckoutServiceImpl) InitiatePayment(ctx context.Context, request *CheckoutRequest) (*CheckoutResponse, error) {
	if err := request.Items.Validate(); err != nil {
		return nil, err
	}
	if len(request.Address) == 0 || string(request.Address) == "null" {
		return nil, &d.ValidationError{Field: "address", Reason: "address is required"}
	}

	buyerID := strings.TrimSpace(request.BuyerID)
	if buyerID == "" {
		buyerID = uuid.NewString()
	}

	quote := pricing.ForCart(request.Items, request.Discounts)

	item, err := json.Marshal(request.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart: %w", err)
	}
	discounts := request.Discounts
	if discounts == nil {
		discounts = d.DiscountSet{}
	}
	embed, err := json.Marshal(d.EmbedData{
		Address:     request.Address,
		Discounts:   discounts,
		DeviceToken: request.DeviceToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed data: %w", err)
	}

	now := s.now()
	tx := d.TransactionRequest{
		AppID:         s.cfg.AppID,
		TransactionID: gateway.NewTransactionID(now),
		BuyerID:       buyerID,
		CreatedAt:     now.UnixMilli(),
		Item:          string(item),
		EmbedData:     string(embed),
		Amount:        quote.Total,
		Description:   "Payment for order #" + buyerID,
		BankCode:      s.cfg.BankCode,
		CallbackURL:   s.cfg.CallbackURL,
	}
	tx.MAC = s.signer.Sign(tx.MACFields()...)

	log := logger.FromContext(ctx).With(slog.String("transaction_id", tx.TransactionID))
	log.Info("creating gateway transaction",
		slog.String("buyer_id", buyerID),
		slog.String("subtotal", quote.Subtotal.String()),
		slog.String("total", quote.Total.String()))

	res, err := s.gateway.CreateTransaction(ctx, tx)
	if err != nil {
		log.Error("gateway transaction failed", slog.String("error", err.Error()))
		return nil, err
	}

	return &CheckoutResponse{
		TransactionID: res.TransactionID,
		PaymentURL:    res.OrderURL,
		Total:         quote.Total,
	}, nil
}
