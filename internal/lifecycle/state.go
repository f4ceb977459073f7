package lifecycle

import (
	"fmt"

	"connectkit/pkg/connect"
)

// State is the authorization lifecycle state.
type State int

const (
	// StateUnauthenticated means there is no app session.
	StateUnauthenticated State = iota

	// StateLoggingIn means an app login is in flight.
	StateLoggingIn

	// StateTokenPending means the session is being exchanged for a platform token.
	StateTokenPending

	// StateReady means the platform token is resolved. It may be absent for a
	// user who never authorized the platform.
	StateReady

	// StateFetchingConnection means the Connection metadata is being fetched.
	StateFetchingConnection

	// StateDisplayed means the Connection and its status are known.
	StateDisplayed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoggingIn:
		return "logging_in"
	case StateTokenPending:
		return "token_pending"
	case StateReady:
		return "ready"
	case StateFetchingConnection:
		return "fetching_connection"
	case StateDisplayed:
		return "displayed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the machine.
type Snapshot struct {
	State State

	// UserID is the logged in app user, "" when unauthenticated.
	UserID string

	// TokenPresent reports whether a platform user token is attached.
	TokenPresent bool

	// Connection is the last successfully fetched Connection, or nil.
	Connection *connect.Connection

	// AwaitingRedirect is set while a hosted authorization flow is open.
	AwaitingRedirect bool

	// Toggling is set while an enable or disable call is in flight.
	Toggling bool
}

// Status returns the connection status, StatusUnknown when no Connection was fetched.
func (s Snapshot) Status() connect.ConnectionStatus {
	if s.Connection == nil {
		return connect.StatusUnknown
	}
	return s.Connection.Status
}

// String renders the state with its parameter, e.g. "ready(true)" or
// "displayed(enabled)".
func (s Snapshot) String() string {
	var out string
	switch s.State {
	case StateReady:
		out = fmt.Sprintf("%s(%t)", s.State, s.TokenPresent)
	case StateDisplayed:
		out = fmt.Sprintf("%s(%s)", s.State, s.Status())
	default:
		out = s.State.String()
	}
	if s.AwaitingRedirect {
		out += "+awaiting_redirect"
	}
	return out
}
