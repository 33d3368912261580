package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps records in process memory. Records do not survive a
// restart; use it for single-instance deployments and tests.
type MemoryLedger struct {
	mu         sync.RWMutex
	records    map[string]*Record
	pendingTTL time.Duration
	now        func() time.Time
}

func NewMemoryLedger(pendingTTL time.Duration) *MemoryLedger {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &MemoryLedger{
		records:    make(map[string]*Record),
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

func (m *MemoryLedger) Get(_ context.Context, transactionID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[transactionID]
	if !ok || m.expired(rec) {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryLedger) Begin(_ context.Context, transactionID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[transactionID]; ok && !m.expired(rec) {
		cp := *rec
		if rec.Status == StatusCompleted {
			return &cp, ErrAlreadyCompleted
		}
		return &cp, ErrInProgress
	}

	rec := &Record{TransactionID: transactionID, Status: StatusPending, Claim: newClaim(), UpdatedAt: m.now()}
	m.records[transactionID] = rec
	cp := *rec
	return &cp, nil
}

func (m *MemoryLedger) Complete(_ context.Context, transactionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[transactionID] = &Record{
		TransactionID: transactionID,
		Status:        StatusCompleted,
		OrderID:       orderID,
		UpdatedAt:     m.now(),
	}
	return nil
}

func (m *MemoryLedger) Abandon(_ context.Context, transactionID, claim string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[transactionID]; ok && rec.Status == StatusPending && rec.Claim == claim {
		delete(m.records, transactionID)
	}
	return nil
}

func (m *MemoryLedger) Close() error {
	return nil
}

// expired must be called with mu held.
func (m *MemoryLedger) expired(rec *Record) bool {
	return rec.Status == StatusPending && m.now().Sub(rec.UpdatedAt) > m.pendingTTL
}
