// Package ledger records which gateway transactions have already produced an
// order, so a redelivered callback never creates a second one.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// DefaultPendingTTL bounds how long a claim survives a crashed worker.
const DefaultPendingTTL = 5 * time.Minute

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrInProgress       = errors.New("transaction is being processed")
	ErrAlreadyCompleted = errors.New("transaction already completed")
)

type Record struct {
	TransactionID string
	Status        Status
	OrderID       string
	// Claim identifies the Begin that owns a pending record.
	Claim         string
	UpdatedAt     time.Time
}

func (r *Record) IsCompleted() bool {
	return r != nil && r.Status == StatusCompleted
}

func newClaim() string {
	return uuid.NewString()
}

// Ledger is safe for concurrent use across processes sharing a backend.
type Ledger interface {
	Get(ctx context.Context, transactionID string) (*Record, error)

	// Begin claims transactionID and returns the record with a fresh Claim.
	// It fails with ErrInProgress while another live claim exists and with
	// ErrAlreadyCompleted (returning the existing record) once an order was
	// recorded. Stale pending claims are taken over under a new Claim.
	Begin(ctx context.Context, transactionID string) (*Record, error)

	// Complete marks the transaction as done with the backend order id.
	Complete(ctx context.Context, transactionID, orderID string) error

	// Abandon drops the pending record only while it still holds claim, so a
	// worker whose claim was taken over cannot release the new owner's.
	// Completed records are left untouched.
	Abandon(ctx context.Context, transactionID, claim string) error

	Close() error
}
