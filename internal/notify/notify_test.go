package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Notification
	err   error
	block chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, n Notification) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestNotify_SendsInBackground(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier(s, time.Second)

	n.Notify(context.Background(), DefaultOrderCreated.OrderCreated("device-1", "42"))
	require.NoError(t, n.Shutdown(context.Background()))

	require.Equal(t, 1, s.count())
	assert.Equal(t, "device-1", s.sent[0].DeviceToken)
	assert.Equal(t, "42", s.sent[0].Data["id"])
	assert.Equal(t, DefaultOrderCreated.Title, s.sent[0].Title)
}

func TestNotify_EmptyTokenIsNoop(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier(s, time.Second)

	n.Notify(context.Background(), Notification{DeviceToken: "  "})
	require.NoError(t, n.Shutdown(context.Background()))

	assert.Zero(t, s.count())
}

func TestNotify_FailureIsSwallowed(t *testing.T) {
	s := &recordingSender{err: errors.New("unregistered token")}
	n := NewNotifier(s, time.Second)

	n.Notify(context.Background(), Notification{DeviceToken: "d"})
	assert.NoError(t, n.Shutdown(context.Background()))
	assert.Equal(t, 1, s.count())
}

func TestNotify_SurvivesCallerCancel(t *testing.T) {
	s := &recordingSender{block: make(chan struct{})}
	n := NewNotifier(s, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	n.Notify(ctx, Notification{DeviceToken: "d"})
	cancel()
	close(s.block)

	require.NoError(t, n.Shutdown(context.Background()))
	assert.Equal(t, 1, s.count())
}

func TestShutdown_RespectsDeadline(t *testing.T) {
	s := &recordingSender{block: make(chan struct{})}
	defer close(s.block)
	n := NewNotifier(s, time.Minute)

	n.Notify(context.Background(), Notification{DeviceToken: "d"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Shutdown(ctx), context.DeadlineExceeded)
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), Notification{DeviceToken: "d"})
	})
	assert.NoError(t, n.Shutdown(context.Background()))
}

type fakeMessaging struct {
	got *messaging.Message
	err error
}

func (f *fakeMessaging) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.got = m
	return "projects/p/messages/1", f.err
}

func TestFCMSender_Send(t *testing.T) {
	fm := &fakeMessaging{}
	s := &FCMSender{client: fm}

	err := s.Send(context.Background(), DefaultOrderCreated.OrderCreated("device-1", "42"))
	require.NoError(t, err)

	require.NotNil(t, fm.got)
	assert.Equal(t, "device-1", fm.got.Token)
	assert.Equal(t, DefaultOrderCreated.Body, fm.got.Notification.Body)
	assert.Equal(t, map[string]string{"id": "42"}, fm.got.Data)
}

func TestFCMSender_Error(t *testing.T) {
	s := &FCMSender{client: &fakeMessaging{err: errors.New("boom")}}
	err := s.Send(context.Background(), Notification{DeviceToken: "d"})
	assert.ErrorContains(t, err, "fcm send")
}
