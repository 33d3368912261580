package forwarder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/notify"
)

// fakeBackend mimics the commerce backend's token and order endpoints.
type fakeBackend struct {
	tokenCalls atomic.Int32
	orderCalls atomic.Int32

	mu          sync.Mutex
	tokens      []string
	tokenStatus int
	orderStatus int
	orderBody   string
	lastAuth    string
	lastOrder   map[string]any
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{
		tokens:      []string{"tok-1", "tok-2", "tok-3"},
		tokenStatus: http.StatusOK,
		orderStatus: http.StatusCreated,
		orderBody:   `{"id":42}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/login/", func(w http.ResponseWriter, r *http.Request) {
		n := fb.tokenCalls.Add(1)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "relay" || creds["password"] != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		fb.mu.Lock()
		status := fb.tokenStatus
		fb.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"auth_token": fb.tokens[int(n-1)%len(fb.tokens)]})
	})
	mux.HandleFunc("/api/orders/add", func(w http.ResponseWriter, r *http.Request) {
		fb.orderCalls.Add(1)

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		fb.mu.Lock()
		fb.lastAuth = r.Header.Get("Authorization")
		fb.lastOrder = body
		status, respBody := fb.orderStatus, fb.orderBody
		fb.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) setOrderResponse(status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.orderStatus = status
	fb.orderBody = body
}

// recordingSender captures notifications.
type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func samplePayload() d.OrderPayload {
	cart := d.Cart{{ProductID: 1, UnitPrice: d.NewMoney(100000), Quantity: 2}}
	return d.NewOrderPayload(cart, "user-1", json.RawMessage(`{"city":"HN"}`), d.NewMoney(200000), d.NewMoney(200000))
}

func (fb *fakeBackend) last() (string, map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastAuth, fb.lastOrder
}
