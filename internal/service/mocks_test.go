package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/forwarder"
	"github.com/fjod/payment_relay/internal/gateway"
	"github.com/fjod/payment_relay/internal/publisher"
	"github.com/fjod/payment_relay/internal/signature"
)

const (
	testKey1 = "outbound-key"
	testKey2 = "callback-key"
)

// MockGateway implements TransactionCreator and StatusChecker for testing
type MockGateway struct {
	mu sync.Mutex

	CreateResult *gateway.CreateResult
	CreateErr    error
	Created      []d.TransactionRequest

	Status      *gateway.Status
	StatusErr   error
	StatusCalls int
	// StatusBlock, when set, holds GetStatus until closed or ctx is done.
	StatusBlock   chan struct{}
	StatusEntered chan struct{}
}

func (m *MockGateway) CreateTransaction(_ context.Context, req d.TransactionRequest) (*gateway.CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	res := *m.CreateResult
	res.TransactionID = req.TransactionID
	return &res, nil
}

func (m *MockGateway) GetStatus(ctx context.Context, _ string) (*gateway.Status, error) {
	if err := waitFor(ctx, m.StatusEntered, m.StatusBlock); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls++
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	return m.Status, nil
}

func settled() *gateway.Status {
	return &gateway.Status{ReturnCode: 1, SubReturnCode: 1}
}

// MockOrderSubmitter implements OrderSubmitter for testing
type MockOrderSubmitter struct {
	mu sync.Mutex

	OrderID      string
	Err          error
	Payloads     []d.OrderPayload
	DeviceTokens []string
	// Block, when set, holds SubmitOrder until closed or ctx is done.
	Block   chan struct{}
	Entered chan struct{}
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, payload d.OrderPayload, deviceToken string) (*forwarder.Result, error) {
	if err := waitFor(ctx, m.Entered, m.Block); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads = append(m.Payloads, payload)
	m.DeviceTokens = append(m.DeviceTokens, deviceToken)
	if m.Err != nil {
		return nil, m.Err
	}
	return &forwarder.Result{OrderID: m.OrderID}, nil
}

func (m *MockOrderSubmitter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}

// waitFor signals entered (if set) and then waits on block the way a real
// outbound call waits on the network.
func waitFor(ctx context.Context, entered, block chan struct{}) error {
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MockPublisher implements publisher.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Unfulfilled []publisher.PaymentUnfulfilled
	Completed   []publisher.OrderCompleted
	Err         error
}

func (m *MockPublisher) PaymentUnfulfilled(_ context.Context, ev publisher.PaymentUnfulfilled) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unfulfilled = append(m.Unfulfilled, ev)
	return m.Err
}

func (m *MockPublisher) OrderCompleted(_ context.Context, ev publisher.OrderCompleted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, ev)
	return m.Err
}

func (m *MockPublisher) Close() error {
	return nil
}

type callbackFixture struct {
	TransactionID string
	BuyerID       string
	Amount        int64
	Cart          d.Cart
	Discounts     d.DiscountSet
	Address       string
	DeviceToken   string
}

func defaultFixture() callbackFixture {
	return callbackFixture{
		TransactionID: "240101_0123456789abcdef0123456789abcdef",
		BuyerID:       "user-1",
		Amount:        200000,
		Cart:          d.Cart{{ProductID: 1, UnitPrice: d.NewMoney(100000), Quantity: 2}},
		Discounts:     d.DiscountSet{d.DiscountFreeShipping},
		Address:       `{"street":"1 Main St","city":"Hanoi"}`,
		DeviceToken:   "device-1",
	}
}

// blob builds the data string the gateway would post.
func (f callbackFixture) blob(t *testing.T) string {
	t.Helper()

	item, err := json.Marshal(f.Cart)
	require.NoError(t, err)
	embed, err := json.Marshal(d.EmbedData{
		Address:     json.RawMessage(f.Address),
		Discounts:   f.Discounts,
		DeviceToken: f.DeviceToken,
	})
	require.NoError(t, err)

	data, err := json.Marshal(map[string]any{
		"app_id":       2553,
		"app_trans_id": f.TransactionID,
		"app_time":     1704067200000,
		"app_user":     f.BuyerID,
		"amount":       f.Amount,
		"embed_data":   string(embed),
		"item":         string(item),
		"zp_trans_id":  240101000000001,
		"server_time":  1704067260000,
	})
	require.NoError(t, err)
	return string(data)
}

func (f callbackFixture) envelope(t *testing.T) d.CallbackEnvelope {
	data := f.blob(t)
	return d.CallbackEnvelope{Data: data, MAC: signature.NewCallbackVerifier(testKey2).Sign(data)}
}
