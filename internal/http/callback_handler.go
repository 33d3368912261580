package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/service"
	"github.com/fjod/payment_relay/pkg/logger"
)

// Gateway acknowledgement codes. Anything other than 1 or 2 makes the gateway
// redeliver the callback.
const (
	returnCodeRetry     = 0
	returnCodeSuccess   = 1
	returnCodeDuplicate = 2
	returnCodeInvalid   = -1
)

type CallbackHandler struct {
	callbacks service.CallbackService
}

func NewCallbackHandler(callbacks service.CallbackService) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks}
}

type CallbackResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ReturnCode int    `json:"return_code"`
	OrderID    string `json:"order_id,omitempty"`
}

// Callback handles POST /callback.
func (h *CallbackHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	if err := validateJSONSchema(callbackLoader, body); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, CallbackResponse{
			Status:     "rejected",
			Message:    err.Error(),
			ReturnCode: returnCodeInvalid,
		})
		return
	}

	var envelope d.CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, CallbackResponse{
			Status:     "rejected",
			Message:    "invalid callback body",
			ReturnCode: returnCodeInvalid,
		})
		return
	}

	outcome, err := h.callbacks.ProcessCallback(ctx, envelope)
	if err != nil {
		h.respondFailure(ctx, w, err)
		return
	}

	status, resp := callbackResponse(outcome)
	respondJSON(ctx, w, status, resp)
}

func (h *CallbackHandler) respondFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, d.ErrTransportFailure):
		status = http.StatusBadGateway
	}
	logger.FromContext(ctx).Error("callback processing failed",
		slog.Int("status", status),
		slog.String("error", err.Error()))
	respondJSON(ctx, w, status, CallbackResponse{
		Status:     "error",
		Message:    "callback could not be processed",
		ReturnCode: returnCodeRetry,
	})
}

func errMessage(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + ": " + err.Error()
}

func callbackResponse(o service.Outcome) (int, CallbackResponse) {
	reason := service.Reason(o)
	switch v := o.(type) {
	case service.Completed:
		if v.Duplicate {
			return http.StatusOK, CallbackResponse{
				Status:     "already_processed",
				Message:    "order already created",
				ReturnCode: returnCodeDuplicate,
				OrderID:    v.OrderID,
			}
		}
		return http.StatusOK, CallbackResponse{
			Status:     "success",
			Message:    "Payment processed and order created successfully",
			ReturnCode: returnCodeSuccess,
			OrderID:    v.OrderID,
		}
	case service.MacMismatch:
		return http.StatusBadRequest, CallbackResponse{Status: reason, Message: errMessage("MAC verification failed", v.Err), ReturnCode: returnCodeInvalid}
	case service.MalformedPayload:
		return http.StatusBadRequest, CallbackResponse{Status: reason, Message: errMessage("Malformed callback payload", v.Err), ReturnCode: returnCodeInvalid}
	case service.Unsettled:
		return http.StatusInternalServerError, CallbackResponse{Status: reason, Message: "Payment not successful", ReturnCode: returnCodeRetry}
	case service.OrderFailed:
		return http.StatusInternalServerError, CallbackResponse{Status: reason, Message: "Failed to create order", ReturnCode: returnCodeRetry}
	case service.InProgress:
		return http.StatusConflict, CallbackResponse{Status: reason, Message: "Callback already being processed", ReturnCode: returnCodeRetry}
	default:
		return http.StatusInternalServerError, CallbackResponse{Status: reason, Message: "unexpected outcome", ReturnCode: returnCodeRetry}
	}
}
