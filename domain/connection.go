package domain

// ConnectionState follows Connecting -> Active -> Disconnected.
// A reconnect is a new connection with a new identifier.
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Active
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DisconnectReason is informational only, it never changes cleanup.
type DisconnectReason string

const (
	ReasonClientClosed   DisconnectReason = "client_closed"
	ReasonTransportError DisconnectReason = "transport_error"
	ReasonServerShutdown DisconnectReason = "server_shutdown"
)
