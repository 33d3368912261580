package service

import (
	d "github.com/fjod/payment_relay/domain"
)

// Outcome is the terminal (or parked) result of one callback delivery. The
// set of variants is closed.
type Outcome interface {
	State() d.CallbackState
	isOutcome()
}

// MacMismatch means the callback MAC did not verify; Err is
// domain.ErrSignatureMismatch.
type MacMismatch struct {
	Err error
}

type MalformedPayload struct {
	TransactionID string
	Err           error
}

// Unsettled means the gateway did not confirm the funds were captured.
type Unsettled struct {
	TransactionID    string
	ReturnCode       int
	SubReturnCode    int
	SubReturnMessage string
}

// OrderFailed means money was captured but the backend has no order.
type OrderFailed struct {
	TransactionID string
	Err           error
}

type Completed struct {
	TransactionID string
	OrderID       string
	Total         d.Money
	// Duplicate is set when an earlier delivery already created the order.
	Duplicate bool
}

// InProgress means another delivery of the same transaction holds the claim.
type InProgress struct {
	TransactionID string
}

func (MacMismatch) State() d.CallbackState      { return d.CallbackStateRejected }
func (MalformedPayload) State() d.CallbackState { return d.CallbackStateRejected }
func (Unsettled) State() d.CallbackState        { return d.CallbackStateRejected }
func (OrderFailed) State() d.CallbackState      { return d.CallbackStateRejected }
func (Completed) State() d.CallbackState        { return d.CallbackStateCompleted }
func (InProgress) State() d.CallbackState       { return d.CallbackStateMacValidated }

func (MacMismatch) isOutcome()      {}
func (MalformedPayload) isOutcome() {}
func (Unsettled) isOutcome()        {}
func (OrderFailed) isOutcome()      {}
func (Completed) isOutcome()        {}
func (InProgress) isOutcome()       {}

// Reason is the rejection reason logged and returned to the gateway.
func Reason(o Outcome) string {
	switch o.(type) {
	case MacMismatch:
		return "mac_mismatch"
	case MalformedPayload:
		return "malformed_payload"
	case Unsettled:
		return "unsettled"
	case OrderFailed:
		return "order_creation_failed"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
