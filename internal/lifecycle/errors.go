package lifecycle

import (
	"errors"
	"fmt"

	"connectkit/internal/exchange"
)

var (
	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("lifecycle closed")

	// ErrCancelled is returned by tasks whose result was discarded because
	// the request was cancelled by a newer request, Logout or Close.
	ErrCancelled = exchange.ErrCancelled

	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrNotLoggedIn is returned when an operation needs an app session.
	ErrNotLoggedIn = exchange.ErrNotLoggedIn
)

func invalidState(op Operation, snap Snapshot, hint string) error {
	if hint != "" {
		return fmt.Errorf("%w: cannot %s in %s, %s", ErrInvalidState, op, snap, hint)
	}
	return fmt.Errorf("%w: cannot %s in %s", ErrInvalidState, op, snap)
}

// unauthorizedError is implemented by platform errors for rejected user tokens.
type unauthorizedError interface {
	error
	IsUnauthorized() bool
}

// codedError is implemented by platform errors that carry a
// machine-readable failure code.
type codedError interface {
	error
	FailureCode() string
}

// failureCode returns the code of an exchange or platform failure, "" when
// err carries none.
func failureCode(err error) string {
	if code := exchange.FailureCode(err); code != "" {
		return code
	}
	var ce codedError
	if errors.As(err, &ce) {
		return ce.FailureCode()
	}
	return ""
}

func isTokenRejected(err error) bool {
	var ue unauthorizedError
	return errors.As(err, &ue) && ue.IsUnauthorized()
}
