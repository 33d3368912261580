package http

import (
	"context"
	"sync"

	d "github.com/fjod/payment_relay/domain"
	"github.com/fjod/payment_relay/internal/service"
)

type CheckoutMock struct {
	mu   sync.Mutex
	res  *service.CheckoutResponse
	err  error
	last *service.CheckoutRequest
}

func (m *CheckoutMock) InitiatePayment(_ context.Context, req *service.CheckoutRequest) (*service.CheckoutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

func (m *CheckoutMock) lastRequest() *service.CheckoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type CallbackMock struct {
	mu      sync.Mutex
	outcome service.Outcome
	err     error
	got     d.CallbackEnvelope
	n       int
}

func (m *CallbackMock) ProcessCallback(_ context.Context, envelope d.CallbackEnvelope) (service.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	m.got = envelope
	return m.outcome, m.err
}

func (m *CallbackMock) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}
