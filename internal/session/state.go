// Package session keeps one logical relay session alive across an
// unreliable outbound connection.
package session

import "time"

// State is the connection state of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingAuth
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingAuth:
		return "awaiting_auth"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Session is the single per-process session record. It returns to its
// initial values on every disconnect, except for the reconnect delay.
type Session struct {
	Identity         string
	Authenticated    bool
	State            State
	ReconnectDelay   time.Duration
	PartnerConnected bool
	ConnectionID     string
}
