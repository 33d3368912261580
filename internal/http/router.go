package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/payment_relay/internal/service"
)

const DefaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	RequestTimeout    time.Duration
	MaxBodyBytes      int64
	// RateLimit is requests per second per client IP on /payment; zero
	// disables it.
	RateLimit         float64
	RateBurst         int
	// CallbackRateLimit applies to /callback on its own bucket. Callbacks come
	// from a handful of gateway addresses, so it is off unless set.
	CallbackRateLimit float64
	CallbackRateBurst int
}

// NewRouter mounts the payment and callback routes at the root and again
// under /zalopay, which is where the gateway is configured to call back.
func NewRouter(cfg RouterConfig, checkout service.CheckoutService, callbacks service.CallbackService, log *slog.Logger) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	payments := NewPaymentHandler(checkout)
	cb := NewCallbackHandler(callbacks)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	paymentMW := routeMiddleware(cfg.MaxBodyBytes, cfg.RateLimit, cfg.RateBurst)
	callbackMW := routeMiddleware(cfg.MaxBodyBytes, cfg.CallbackRateLimit, cfg.CallbackRateBurst)

	mount := func(r chi.Router) {
		r.With(paymentMW...).Post("/payment", payments.Pay)
		r.With(callbackMW...).Post("/callback", cb.Callback)
	}
	mount(r)
	r.Route("/zalopay", mount)

	return otelhttp.NewHandler(r, "payment-relay")
}

// routeMiddleware returns the body limit, preceded by a per-IP limiter when
// rps is positive. One limiter serves both mounts of a route.
func routeMiddleware(maxBody int64, rps float64, burst int) []func(http.Handler) http.Handler {
	mw := []func(http.Handler) http.Handler{MaxBody(maxBody)}
	if rps > 0 {
		mw = append([]func(http.Handler) http.Handler{NewIPRateLimiter(rps, burst).Middleware}, mw...)
	}
	return mw
}
