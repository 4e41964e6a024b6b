package orchestrator

// State is the position of a connection in the per-call state machine.
type State int

const (
	// StateNeedAuth means there is no storage URL and token.
	StateNeedAuth State = iota

	// StateNeedConnection means a session exists but no transport handle.
	StateNeedConnection

	// StateCalling means the operation is in flight.
	StateCalling

	// StateSuccess means the last call completed.
	StateSuccess

	// StateRetryable means the last attempt failed and will be retried.
	StateRetryable

	// StateFatal means the last call failed for good.
	StateFatal
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNeedAuth:
		return "need_auth"
	case StateNeedConnection:
		return "need_connection"
	case StateCalling:
		return "calling"
	case StateSuccess:
		return "success"
	case StateRetryable:
		return "retryable"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
