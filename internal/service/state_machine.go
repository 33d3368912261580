package service

import (
	"log/slog"

	d "github.com/fjod/payment_relay/domain"
)

// stateMachine tracks one callback's progress. An illegal transition is a
// programming error and is logged, not enforced.
type stateMachine struct {
	state d.CallbackState
	log   *slog.Logger
}

func newStateMachine(log *slog.Logger) *stateMachine {
	return &stateMachine{
		state: d.CallbackStateReceived,
		log:   log,
	}
}

func (m *stateMachine) to(next d.CallbackState) {
	if !d.CanTransitionTo(m.state, next) {
		m.log.Error("illegal callback state transition",
			slog.String("from", m.state.String()),
			slog.String("to", next.String()))
	}
	m.log.Info("callback state changed",
		slog.String("from", m.state.String()),
		slog.String("to", next.String()))
	m.state = next
}
