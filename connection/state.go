package connection

// State is a connection's lifecycle state. Transitions only follow the
// defined graph: Idle is the hub; Connecting, Disconnecting, Transacting,
// and Executing each return to Idle.
type State int

const (
	// StateIdle is the initial state and the only state new work may
	// start from.
	StateIdle State = iota
	// StateConnecting means a handshake is in flight.
	StateConnecting
	// StateDisconnecting means a close is in flight.
	StateDisconnecting
	// StateTransacting means a transaction owns the connection.
	StateTransacting
	// StateExecuting means a request owns the connection.
	StateExecuting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateDisconnecting:
		return "DISCONNECTING"
	case StateTransacting:
		return "TRANSACTING"
	case StateExecuting:
		return "EXECUTING"
	default:
		return "IDLE"
	}
}

// stateChange is the payload delivered to one-shot transition waiters.
// A non-nil err marks a transition that failed its operation.
type stateChange struct {
	state State
	err   error
}
