// Package forwarder hands verified orders to the commerce backend.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/notify"
	"github.com/fjod/payment_relay/internal/secrets"
	"github.com/fjod/payment_relay/pkg/circuitbreaker"
	"github.com/fjod/payment_relay/pkg/logger"
)

const maxErrorBody = 512

type Config struct {
	BaseURL    string
	TokenPath  string
	OrdersPath string
	Timeout    time.Duration
	TokenTTL   time.Duration
	Breaker    circuitbreaker.Config
}

type Result struct {
	OrderID string
}

type Forwarder struct {
	cfg      Config
	http     *resty.Client
	creds    secrets.Provider
	tokens   *tokenCache
	notifier *notify.Notifier
	template notify.Template
	breaker  *gobreaker.CircuitBreaker[*resty.Response]
}

type tokenResponse struct {
	AuthToken string `json:"auth_token"`
}

type orderResponse struct {
	ID json.RawMessage `json:"id"`
}

func New(cfg Config, creds secrets.Provider, notifier *notify.Notifier, template notify.Template, log *slog.Logger) *Forwarder {
	if cfg.TokenPath == "" {
		cfg.TokenPath = "/auth/token/login/"
	}
	if cfg.OrdersPath == "" {
		cfg.OrdersPath = "/api/orders/add"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Content-Type", "application/json")

	f := &Forwarder{
		cfg:      cfg,
		http:     rc,
		creds:    creds,
		notifier: notifier,
		template: template,
		breaker: circuitbreaker.New[*resty.Response]("backend", cfg.Breaker,
			func(err error) bool { return errors.Is(err, d.ErrTransportFailure) }, log),
	}
	f.tokens = newTokenCache(cfg.TokenTTL, f.exchangeToken)
	return f
}

// SubmitOrder posts payload to the backend. Only a 201 with an id is success;
// nothing is retried here. On success the buyer's device, if any, is notified
// in the background.
func (f *Forwarder) SubmitOrder(ctx context.Context, payload d.OrderPayload, deviceToken string) (*Result, error) {
	token, err := f.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := f.call("backend create order", func() (*resty.Response, error) {
		return f.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Token "+token).
			SetBody(payload).
			Post(f.cfg.OrdersPath)
	})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		f.tokens.Invalidate(token)
		return nil, orderError(resp)
	default:
		return nil, orderError(resp)
	}

	var out orderResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || len(out.ID) == 0 {
		return nil, &d.OrderError{StatusCode: resp.StatusCode(), Body: "response has no order id"}
	}
	orderID := string(bytes.Trim(out.ID, `"`))

	logger.FromContext(ctx).Info("order created", slog.String("order_id", orderID))

	f.notifier.Notify(ctx, f.template.OrderCreated(deviceToken, orderID))
	return &Result{OrderID: orderID}, nil
}

func (f *Forwarder) exchangeToken(ctx context.Context) (string, error) {
	creds, err := f.creds.Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("backend credentials: %w", err)
	}

	resp, err := f.call("backend token exchange", func() (*resty.Response, error) {
		return f.http.R().
			SetContext(ctx).
			SetBody(map[string]string{"username": creds.Username, "password": creds.Password}).
			Post(f.cfg.TokenPath)
	})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("token exchange: %w", orderError(resp))
	}

	var out tokenResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || out.AuthToken == "" {
		return "", fmt.Errorf("token exchange: %w", &d.OrderError{StatusCode: resp.StatusCode(), Body: "response has no auth_token"})
	}

	logger.FromContext(ctx).Debug("backend token refreshed")
	return out.AuthToken, nil
}

func (f *Forwarder) call(op string, fn func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := f.breaker.Execute(func() (*resty.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, &d.TransportError{Op: op, Err: err}
		}
		return resp, nil
	})
	if err != nil && circuitbreaker.IsOpen(err) {
		return nil, &d.TransportError{Op: op, Err: err}
	}
	return resp, err
}

func orderError(resp *resty.Response) *d.OrderError {
	body := resp.String()
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &d.OrderError{StatusCode: resp.StatusCode(), Body: body}
}
