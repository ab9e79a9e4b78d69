package domain

import "time"

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateHandshaking
	StateProbing
	StateOpen
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateProbing:
		return "probing"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Session is the server-side binding of one duplex connection. A new value is
// produced by every successful connect.
type Session struct {
	Endpoint    string
	ID          string
	AuthToken   string
	ConnectedAt time.Time
}
