package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjod/payment_relay/pkg/logger"
)

// ErrorResponse carries the text twice: storefront clients read "message",
// "error" is kept for everything else.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(ctx).Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    code,
	})
}
