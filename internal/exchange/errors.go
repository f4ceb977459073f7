package exchange

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is returned by calls that need a session when none is given.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrCancelled is returned when a call was cancelled by CancelAll, by a
	// newer call of the same kind, or by its context. Callers should swallow it.
	ErrCancelled = errors.New("request cancelled")
)

// CodeUnauthorized is the application failure code the backend reports when
// the user has not connected the service yet.
const CodeUnauthorized = "unauthorized"

// ErrorKind classifies an exchange failure.
type ErrorKind int

const (
	// ErrorKindTransport covers network and I/O failures, including
	// undecodable response bodies.
	ErrorKindTransport ErrorKind = iota + 1
	// ErrorKindUnsuccessful covers non-2xx responses and application-level
	// failure codes in a 2xx body.
	ErrorKindUnsuccessful
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "transport error"
	case ErrorKindUnsuccessful:
		return "unsuccessful response"
	default:
		return "unknown error"
	}
}

// Error is the single failure signal of the exchange client. Its message
// never includes transport detail; the underlying cause is available through
// errors.Unwrap for logging.
type Error struct {
	Op     string
	Kind   ErrorKind
	Status int    // HTTP status for ErrorKindUnsuccessful, 0 otherwise
	Code   string // Optional machine-readable failure code, e.g. "unauthorized"

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed: %s", e.Op, e.Kind)
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s)", e.Code)
	} else if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match on Kind and Code against a template Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return (t.Kind == 0 || t.Kind == e.Kind) && (t.Code == "" || t.Code == e.Code)
}

// ErrUnauthorized matches any *Error carrying CodeUnauthorized.
var ErrUnauthorized = &Error{Code: CodeUnauthorized}

// FailureCode returns the machine-readable code of err, or "" when err is not
// an exchange failure or carries no code.
func FailureCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCancelled reports whether err signals an intentionally aborted call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

func transportError(op string, cause error) *Error {
	return &Error{Op: op, Kind: ErrorKindTransport, cause: cause}
}

func unsuccessfulError(op string, status int, code string, cause error) *Error {
	return &Error{Op: op, Kind: ErrorKindUnsuccessful, Status: status, Code: code, cause: cause}
}
