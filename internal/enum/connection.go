package enum

// ConnectionStatus is the externally visible state of an account session.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionSyncing      ConnectionStatus = "syncing"
	ConnectionIdling       ConnectionStatus = "idling"
	ConnectionError        ConnectionStatus = "error"
)

func (t ConnectionStatus) String() string {
	return string(t)
}
