package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/service"
	"github.com/fjod/payment_relay/pkg/logger"
)

type PaymentHandler struct {
	checkout service.CheckoutService
}

func NewPaymentHandler(checkout service.CheckoutService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout}
}

type PaymentRequest struct {
	CartItems       d.Cart          `json:"cartItems"`
	Address         json.RawMessage `json:"address"`
	CustomerID      json.RawMessage `json:"customer_id,omitempty"`
	DiscountOptions d.DiscountSet   `json:"discountOptions,omitempty"`
	FCM             string          `json:"fcm,omitempty"`
}

type PaymentResponse struct {
	Success       bool   `json:"success"`
	PaymentURL    string `json:"paymentUrl"`
	TransactionID string `json:"transactionId"`
	Total         string `json:"total"`
}

// Pay handles POST /payment.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := bearerToken(r); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized", "Access token is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	if err := validateJSONSchema(paymentLoader, body); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req PaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	res, err := h.checkout.InitiatePayment(ctx, &service.CheckoutRequest{
		Items:       req.CartItems,
		Address:     req.Address,
		Discounts:   req.DiscountOptions,
		BuyerID:     customerID(req.CustomerID),
		DeviceToken: req.FCM,
	})
	if err != nil {
		h.respondCheckoutError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, PaymentResponse{
		Success:       true,
		PaymentURL:    res.PaymentURL,
		TransactionID: res.TransactionID,
		Total:         res.Total.String(),
	})
}

func (h *PaymentHandler) respondCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var gwErr *d.GatewayError
	switch {
	case errors.Is(err, d.ErrValidation):
		respondError(ctx, w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &gwErr):
		msg := gwErr.ReturnMessage
		if msg == "" {
			msg = "Payment failed"
		}
		respondJSON(ctx, w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Payment creation failed",
			Message: msg,
			Code:    "gateway_rejected",
			Details: gwErr.Detail,
		})
	case errors.Is(err, d.ErrTransportFailure):
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respondError(ctx, w, status, "gateway_unavailable", "payment gateway unavailable")
	default:
		logger.FromContext(ctx).Error("checkout failed", slog.String("error", err.Error()))
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// bearerToken takes the credential after the scheme, whatever the scheme is.
// The token is only checked for presence; the storefront owns authentication.
func bearerToken(r *http.Request) (string, error) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 {
		return "", d.ErrAuthRequired
	}
	return parts[1], nil
}

// customerID accepts the id as a JSON string or number.
func customerID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
