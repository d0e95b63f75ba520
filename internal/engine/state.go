package engine

// State is the connection lifecycle state exposed to UI collaborators.
type State int

const (
	// StateDisconnected means no connection is live and no dial is in
	// flight. It is also the terminal state once the reconnect budget is
	// exhausted; only an explicit Connect leaves it.
	StateDisconnected State = iota

	// StateConnecting means a dial or reconnect attempt is in flight.
	StateConnecting

	// StateConnected means the WebSocket is open and commands transmit.
	StateConnected
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
