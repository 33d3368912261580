package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired           = errors.New("access token is required")
	ErrValidation             = errors.New("validation failed")
	ErrSignatureMismatch      = errors.New("mac mismatch")
	ErrGatewayRejected        = errors.New("gateway rejected request")
	ErrTransportFailure       = errors.New("transport failure")
	ErrDownstreamOrderFailure = errors.New("order creation failed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// GatewayError is a non-success application-level result from the gateway.
type GatewayError struct {
	Op               string
	ReturnCode       int
	ReturnMessage    string
	SubReturnCode    int
	SubReturnMessage string
	Detail           map[string]any
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: return_code=%d sub_return_code=%d message=%q sub_message=%q",
		e.Op, e.ReturnCode, e.SubReturnCode, e.ReturnMessage, e.SubReturnMessage)
}

func (e *GatewayError) Unwrap() error { return ErrGatewayRejected }

// TransportError is a network, timeout or open-breaker failure talking to an
// external dependency. It matches both ErrTransportFailure and the cause.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransportFailure, e.Err} }

// OrderError is a non-201 answer from the commerce backend.
type OrderError struct {
	StatusCode int
	Body       string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

func (e *OrderError) Unwrap() error { return ErrDownstreamOrderFailure }
