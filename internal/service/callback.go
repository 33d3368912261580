package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/ledger"
	"github.com/fjod/payment_relay/internal/pricing"
	"github.com/fjod/payment_relay/internal/publisher"
	"github.com/fjod/payment_relay/internal/signature"
	"github.com/fjod/payment_relay/pkg/logger"
)

type CallbackService interface {
	ProcessCallback(ctx context.Context, envelope d.CallbackEnvelope) (Outcome, error)
}

// DefaultReconcileTimeout bounds one reconciliation run, which outlives the
// request that started it.
const DefaultReconcileTimeout = 60 * time.Second

type CallbackServiceImpl struct {
	verifier  *signature.CallbackVerifier
	gateway   StatusChecker
	orders    OrderSubmitter
	ledger    ledger.Ledger
	publisher publisher.Publisher
	group     singleflight.Group
	timeout   time.Duration
	now       func() time.Time
}

func NewCallbackService(
	verifier *signature.CallbackVerifier,
	gw StatusChecker,
	orders OrderSubmitter,
	l ledger.Ledger,
	pub publisher.Publisher) *CallbackServiceImpl {

	if pub == nil {
		pub = publisher.Noop{}
	}
	return &CallbackServiceImpl{
		verifier:  verifier,
		gateway:   gw,
		orders:    orders,
		ledger:    l,
		publisher: pub,
		timeout:   DefaultReconcileTimeout,
		now:       time.Now,
	}
}

// ProcessCallback drives one delivery through
// Received -> MacValidated -> StatusConfirmed -> OrderSubmitted -> Completed|Rejected.
// The returned error is set only for infrastructure failures (gateway
// unreachable, ledger unavailable) after which the gateway should retry.
func (s *CallbackServiceImpl) ProcessCallback(ctx context.Context, envelope d.CallbackEnvelope) (Outcome, error) {
	log := logger.FromContext(ctx)
	sm := newStateMachine(log)

	if envelope.Data == "" {
		sm.to(d.CallbackStateRejected)
		return MalformedPayload{Err: ErrEmptyCallback}, nil
	}

	if !s.verifier.Verify(envelope.Data, envelope.MAC) {
		sm.to(d.CallbackStateRejected)
		log.Error("callback rejected", slog.String("reason", "mac_mismatch"))
		return MacMismatch{Err: d.ErrSignatureMismatch}, nil
	}
	sm.to(d.CallbackStateMacValidated)

	payload, err := d.ParseCallbackData(envelope.Data)
	if err != nil {
		sm.to(d.CallbackStateRejected)
		log.Error("callback rejected", slog.String("reason", "malformed_payload"), slog.String("error", err.Error()))
		return MalformedPayload{Err: err}, nil
	}

	txID := payload.Data.TransactionID
	ctx = logger.WithLogger(ctx, log.With(slog.String("transaction_id", txID)))
	sm.log = logger.FromContext(ctx)

	// Concurrent deliveries of one transaction in this process share one run.
	// The run is detached from every caller: once an order may have been
	// submitted it must reach the ledger, whoever hung up.
	ch := s.group.DoChan(txID, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.reconcile(runCtx, sm, payload)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			sm.log.Debug("callback collapsed with concurrent delivery")
		}
		return res.Val.(Outcome), nil
	case <-ctx.Done():
		sm.log.Warn("caller gone before reconciliation finished; it continues in the background",
			slog.String("error", ctx.Err().Error()))
		return nil, ctx.Err()
	}
}

func (s *CallbackServiceImpl) reconcile(ctx context.Context, sm *stateMachine, p *d.CallbackPayload) (Outcome, error) {
	txID := p.Data.TransactionID
	log := sm.log

	rec, err := s.ledger.Begin(ctx, txID)
	switch {
	case errors.Is(err, ledger.ErrAlreadyCompleted):
		sm.to(d.CallbackStateCompleted)
		log.Info("callback already processed", slog.String("order_id", rec.OrderID))
		return Completed{TransactionID: txID, OrderID: rec.OrderID, Duplicate: true}, nil
	case errors.Is(err, ledger.ErrInProgress):
		log.Warn("callback delivery while another is in flight")
		return InProgress{TransactionID: txID}, nil
	case err != nil:
		return nil, fmt.Errorf("claim transaction: %w", err)
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		// the gateway retries; let that retry start over
		if relErr := s.ledger.Abandon(context.WithoutCancel(ctx), txID, rec.Claim); relErr != nil {
			log.Error("failed to release transaction claim", slog.String("error", relErr.Error()))
		}
	}()

	status, err := s.gateway.GetStatus(ctx, txID)
	if err != nil {
		log.Error("gateway status check failed", slog.String("error", err.Error()))
		return nil, err
	}
	if !status.Settled() {
		sm.to(d.CallbackStateRejected)
		log.Error("callback rejected",
			slog.String("reason", "unsettled"),
			slog.Int("return_code", status.ReturnCode),
			slog.Int("sub_return_code", status.SubReturnCode))
		return Unsettled{
			TransactionID:    txID,
			ReturnCode:       status.ReturnCode,
			SubReturnCode:    status.SubReturnCode,
			SubReturnMessage: status.SubReturnMessage,
		}, nil
	}
	sm.to(d.CallbackStateStatusConfirmed)

	// the transmitted amount is advisory; the total always comes from the cart
	quote := pricing.ForCart(p.Cart, p.Context.Discounts)
	if !quote.Total.Equal(p.Data.Amount) {
		log.Warn("transmitted amount differs from recomputed total",
			slog.String("amount", p.Data.Amount.String()),
			slog.String("total", quote.Total.String()))
	}

	order := d.NewOrderPayload(p.Cart, p.Data.BuyerID, p.Context.Address, quote.Subtotal, quote.Total)
	sm.to(d.CallbackStateOrderSubmitted)

	res, err := s.orders.SubmitOrder(ctx, order, p.Context.DeviceToken)
	if err != nil {
		sm.to(d.CallbackStateRejected)
		s.reportUnfulfilled(ctx, p, quote.Total, err)
		return OrderFailed{TransactionID: txID, Err: err}, nil
	}

	completed = true
	if err := s.ledger.Complete(ctx, txID, res.OrderID); err != nil {
		// the order exists; a redelivery after the claim expires could duplicate it
		log.Error("failed to record completed transaction",
			slog.String("order_id", res.OrderID),
			slog.String("error", err.Error()))
	}
	sm.to(d.CallbackStateCompleted)

	if err := s.publisher.OrderCompleted(ctx, publisher.OrderCompleted{
		TransactionID: txID,
		OrderID:       res.OrderID,
		BuyerID:       p.Data.BuyerID,
		Total:         quote.Total,
		OccurredAt:    s.now().UTC(),
	}); err != nil {
		log.Warn("failed to publish order completed event", slog.String("error", err.Error()))
	}

	return Completed{TransactionID: txID, OrderID: res.OrderID, Total: quote.Total}, nil
}

// reportUnfulfilled records a captured payment without an order. There is no
// automatic compensation; the event and the log line are what operators
// reconcile from.
func (s *CallbackServiceImpl) reportUnfulfilled(ctx context.Context, p *d.CallbackPayload, total d.Money, cause error) {
	log := logger.FromContext(ctx)

	statusCode := 0
	var orderErr *d.OrderError
	if errors.As(cause, &orderErr) {
		statusCode = orderErr.StatusCode
	}

	log.Error("payment captured but order creation failed",
		slog.String("buyer_id", p.Data.BuyerID),
		slog.Int64("gateway_trans_id", p.Data.GatewayTransID),
		slog.String("amount", p.Data.Amount.String()),
		slog.Int("status_code", statusCode),
		slog.String("error", cause.Error()))

	err := s.publisher.PaymentUnfulfilled(ctx, publisher.PaymentUnfulfilled{
		TransactionID:  p.Data.TransactionID,
		GatewayTransID: p.Data.GatewayTransID,
		BuyerID:        p.Data.BuyerID,
		Amount:         p.Data.Amount,
		Total:          total,
		Reason:         cause.Error(),
		StatusCode:     statusCode,
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		log.Error("failed to publish unfulfilled payment event", slog.String("error", err.Error()))
	}
}
