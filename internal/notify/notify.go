// Package notify pushes best-effort notifications to the buyer's device.
// Delivery failures are logged and never reported to callers.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/payment_relay/pkg/logger"
)

type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Template is the text of a notification kind.
type Template struct {
	Title string
	Body  string
}

var DefaultOrderCreated = Template{
	Title: "Order created successfully",
	Body:  "Your payment has been completed and your order is now being processed",
}

// OrderCreated builds the notification sent after the backend accepted an order.
func (t Template) OrderCreated(deviceToken, orderID string) Notification {
	return Notification{
		DeviceToken: deviceToken,
		Title:       t.Title,
		Body:        t.Body,
		Data:        map[string]string{"id": orderID},
	}
}

// Notifier sends notifications in the background, fire-and-forget.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(sender Sender, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sender: sender, timeout: timeout}
}

// Notify returns immediately. An empty device token is a no-op.
func (n *Notifier) Notify(ctx context.Context, note Notification) {
	if n == nil || n.sender == nil || strings.TrimSpace(note.DeviceToken) == "" {
		return
	}

	log := logger.FromContext(ctx)
	// detached from the request so a finished callback does not cancel delivery
	sendCtx := logger.WithLogger(context.WithoutCancel(ctx), log)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(sendCtx, n.timeout)
		defer cancel()

		if err := n.sender.Send(ctx, note); err != nil {
			log.Warn("push notification failed", slog.String("error", err.Error()))
			return
		}
		log.Debug("push notification sent")
	}()
}

// Shutdown waits for in-flight sends or until ctx is done.
func (n *Notifier) Shutdown(ctx context.Context) error {
	if n == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Send(context.Context, Notification) error { return nil }
