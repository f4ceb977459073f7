package lifecycle

import (
	"connectkit/pkg/connect"
)

// Operation names the request an error event belongs to.
type Operation string

const (
	OpLogin           Operation = "login"
	OpTokenFetch      Operation = "token_fetch"
	OpConnectionFetch Operation = "connection_fetch"
	OpEnable          Operation = "enable"
	OpDisable         Operation = "disable"
	OpAuthorize       Operation = "authorize"
	OpRedirect        Operation = "redirect"
)

// ErrorEvent is a transient, dismissible failure. The machine has already
// restored its prior valid state when it is delivered.
type ErrorEvent struct {
	Op  Operation
	Err error
	// Code is the machine-readable failure code, if any.
	Code string
}

// IsAuthentication reports whether the failure came from the app login.
func (e ErrorEvent) IsAuthentication() bool {
	return e.Op == OpLogin
}

// Listener consumes the machine's outputs. All methods are called on the
// dispatcher, one at a time and in order, and never after Close.
type Listener interface {
	OnStateChanged(Snapshot)
	OnError(ErrorEvent)
	OnRedirect(connect.RedirectResult)
}

// ListenerFuncs adapts optional functions to a Listener.
type ListenerFuncs struct {
	StateChanged func(Snapshot)
	Error        func(ErrorEvent)
	Redirect     func(connect.RedirectResult)
}

func (f ListenerFuncs) OnStateChanged(s Snapshot) {
	if f.StateChanged != nil {
		f.StateChanged(s)
	}
}

func (f ListenerFuncs) OnError(e ErrorEvent) {
	if f.Error != nil {
		f.Error(e)
	}
}

func (f ListenerFuncs) OnRedirect(r connect.RedirectResult) {
	if f.Redirect != nil {
		f.Redirect(r)
	}
}
