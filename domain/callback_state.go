package domain

type CallbackState string

const (
	CallbackStateReceived        CallbackState = "RECEIVED"
	CallbackStateMacValidated    CallbackState = "MAC_VALIDATED"
	CallbackStateStatusConfirmed CallbackState = "STATUS_CONFIRMED"
	CallbackStateOrderSubmitted  CallbackState = "ORDER_SUBMITTED"
	CallbackStateCompleted       CallbackState = "COMPLETED"
	CallbackStateRejected        CallbackState = "REJECTED"
)

func (s CallbackState) IsTerminal() bool {
	return s == CallbackStateCompleted || s == CallbackStateRejected
}

// String representation (for logging)
func (s CallbackState) String() string {
	return string(s)
}

var callbackTransitions = map[CallbackState][]CallbackState{
	CallbackStateReceived:        {CallbackStateMacValidated, CallbackStateRejected},
	CallbackStateMacValidated:    {CallbackStateStatusConfirmed, CallbackStateCompleted, CallbackStateRejected},
	CallbackStateStatusConfirmed: {CallbackStateOrderSubmitted, CallbackStateRejected},
	CallbackStateOrderSubmitted:  {CallbackStateCompleted, CallbackStateRejected},
}

// CanTransitionTo reports whether a callback in state from may move to state to.
// MacValidated -> Completed is the replay of an already completed transaction.
func CanTransitionTo(from, to CallbackState) bool {
	for _, next := range callbackTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
