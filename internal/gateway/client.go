// Package gateway talks to the hosted-checkout payment gateway: it submits
// signed transactions and independently queries their settlement status.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/signature"
	"github.com/fjod/payment_relay/pkg/circuitbreaker"
	"github.com/fjod/payment_relay/pkg/logger"
)

const (
	returnCodeSuccess    = 1
	subReturnCodeSuccess = 1
)

// TransactionIDLocation is the zone used for the date prefix of transaction ids.
var TransactionIDLocation = time.FixedZone("UTC+7", 7*60*60)

type Config struct {
	AppID        int64
	BaseURL      string
	CreatePath   string
	StatusPath   string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	Breaker      circuitbreaker.Config
}

type Client struct {
	cfg      Config
	http     *resty.Client
	signer   *signature.RequestSigner
	createCB *gobreaker.CircuitBreaker[[]byte]
	statusCB *gobreaker.CircuitBreaker[[]byte]
}

type CreateResult struct {
	TransactionID string
	OrderURL      string
	Token         string
}

// Status is the gateway's authoritative view of a transaction.
type Status struct {
	ReturnCode       int     `json:"return_code"`
	ReturnMessage    string  `json:"return_message"`
	SubReturnCode    int     `json:"sub_return_code"`
	SubReturnMessage string  `json:"sub_return_message"`
	IsProcessing     bool    `json:"is_processing"`
	Amount           d.Money `json:"amount"`
	GatewayTransID   int64   `json:"zp_trans_id"`
}

// Settled is true only when the gateway confirms funds were captured.
func (s Status) Settled() bool {
	return s.ReturnCode == returnCodeSuccess && s.SubReturnCode == subReturnCodeSuccess
}

type createResponse struct {
	ReturnCode       int    `json:"return_code"`
	ReturnMessage    string `json:"return_message"`
	SubReturnCode    int    `json:"sub_return_code"`
	SubReturnMessage string `json:"sub_return_message"`
	OrderURL         string `json:"order_url"`
	Token            string `json:"zp_trans_token"`
}

func NewClient(cfg Config, signer *signature.RequestSigner, log *slog.Logger) *Client {
	if cfg.CreatePath == "" {
		cfg.CreatePath = "/create"
	}
	if cfg.StatusPath == "" {
		cfg.StatusPath = "/getstatusbyapptransid"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			// transport failures only; application codes are final
			return err != nil && !errors.Is(err, context.Canceled)
		})

	isTransport := func(err error) bool { return errors.Is(err, d.ErrTransportFailure) }
	return &Client{
		cfg:      cfg,
		http:     rc,
		signer:   signer,
		createCB: circuitbreaker.New[[]byte]("gateway-create", cfg.Breaker, isTransport, log),
		statusCB: circuitbreaker.New[[]byte]("gateway-status", cfg.Breaker, isTransport, log),
	}
}

// NewTransactionID returns a gateway-scoped unique id: yymmdd_<uuid hex>.
func NewTransactionID(now time.Time) string {
	return now.In(TransactionIDLocation).Format("060102") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateTransaction submits a signed request. A non-success return code is
// reported as a *domain.GatewayError and never retried.
func (c *Client) CreateTransaction(ctx context.Context, req d.TransactionRequest) (*CreateResult, error) {
	if req.MAC == "" {
		return nil, errors.New("gateway: transaction request is not signed")
	}

	body, err := c.createCB.Execute(func() ([]byte, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			Post(c.cfg.CreatePath)
		return checkHTTP("create", resp, err)
	})
	if err != nil {
		return nil, wrapBreaker("create", err)
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("gateway create: decode response: %w", err)
	}

	logger.FromContext(ctx).Debug("gateway create answered",
		slog.String("transaction_id", req.TransactionID),
		slog.Int("return_code", out.ReturnCode),
		slog.Int("sub_return_code", out.SubReturnCode))

	if out.ReturnCode != returnCodeSuccess {
		return nil, &d.GatewayError{
			Op:               "create",
			ReturnCode:       out.ReturnCode,
			ReturnMessage:    out.ReturnMessage,
			SubReturnCode:    out.SubReturnCode,
			SubReturnMessage: out.SubReturnMessage,
			Detail:           detail(body),
		}
	}

	return &CreateResult{
		TransactionID: req.TransactionID,
		OrderURL:      out.OrderURL,
		Token:         out.Token,
	}, nil
}

// GetStatus queries the gateway directly for the state of transactionID.
func (c *Client) GetStatus(ctx context.Context, transactionID string) (*Status, error) {
	appID := strconv.FormatInt(c.cfg.AppID, 10)

	body, err := c.statusCB.Execute(func() ([]byte, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"app_id":       appID,
				"app_trans_id": transactionID,
				"mac":          c.signer.SignStatusQuery(appID, transactionID),
			}).
			Get(c.cfg.StatusPath)
		return checkHTTP("status", resp, err)
	})
	if err != nil {
		return nil, wrapBreaker("status", err)
	}

	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("gateway status: decode response: %w", err)
	}

	logger.FromContext(ctx).Info("gateway status answered",
		slog.String("transaction_id", transactionID),
		slog.Int("return_code", st.ReturnCode),
		slog.Int("sub_return_code", st.SubReturnCode),
		slog.Bool("settled", st.Settled()))

	return &st, nil
}

func checkHTTP(op string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &d.TransportError{Op: "gateway " + op, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &d.TransportError{
			Op:  "gateway " + op,
			Err: fmt.Errorf("unexpected http status %d", resp.StatusCode()),
		}
	}
	return resp.Body(), nil
}

func wrapBreaker(op string, err error) error {
	if circuitbreaker.IsOpen(err) {
		return &d.TransportError{Op: "gateway " + op, Err: err}
	}
	return err
}

func detail(body []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	return m
}
