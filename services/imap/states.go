package imap

import "github.com/oneboxhq/onebox/internal/enum"

// SessionInput is a trigger applied to the session state machine.
type SessionInput string

const (
	InputConnect    SessionInput = "connect"
	InputConnectOK  SessionInput = "connect_ok"
	InputSyncStart  SessionInput = "sync_start"
	InputSyncDone   SessionInput = "sync_done"
	InputIdleStart  SessionInput = "idle_start"
	InputDisconnect SessionInput = "disconnect"
	InputFault      SessionInput = "fault"
)

// Transition is the pure state transition table for a mailbox session. It
// returns the next state and whether the input is legal in the given state.
// Disconnect is accepted from every state. A fault moves any live state to
// error; connect is only legal from disconnected and error.
func Transition(state enum.ConnectionStatus, input SessionInput) (enum.ConnectionStatus, bool) {
	if input == InputDisconnect {
		return enum.ConnectionDisconnected, true
	}

	switch state {
	case enum.ConnectionDisconnected, enum.ConnectionError:
		if input == InputConnect {
			return enum.ConnectionConnecting, true
		}
	case enum.ConnectionConnecting:
		switch input {
		case InputConnectOK:
			return enum.ConnectionConnected, true
		case InputFault:
			return enum.ConnectionError, true
		}
	case enum.ConnectionConnected:
		switch input {
		case InputSyncStart:
			return enum.ConnectionSyncing, true
		case InputIdleStart:
			return enum.ConnectionIdling, true
		case InputFault:
			return enum.ConnectionError, true
		}
	case enum.ConnectionSyncing:
		switch input {
		case InputSyncDone:
			return enum.ConnectionConnected, true
		case InputFault:
			return enum.ConnectionError, true
		}
	case enum.ConnectionIdling:
		switch input {
		case InputSyncStart:
			return enum.ConnectionSyncing, true
		case InputFault:
			return enum.ConnectionError, true
		}
	}

	return state, false
}
