package platform

import (
	"encoding/json"
	"fmt"
)

// Default failure used when the platform returns an unparseable error body.
const (
	DefaultErrorCode    = "exception"
	DefaultErrorMessage = "Unexpected error"
)

// ErrorResponse is a failed platform API call.
type ErrorResponse struct {
	Status  int    `json:"-"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("platform error %d: %s (%s)", e.Status, e.Message, e.Code)
}

// IsUnauthorized reports whether the platform rejected the user token.
func (e *ErrorResponse) IsUnauthorized() bool {
	return e.Status == 401
}

// FailureCode returns the machine-readable code of the failure.
func (e *ErrorResponse) FailureCode() string {
	return e.Code
}

// TransportError is a platform call that never got a usable response. Its
// message names the call only; the network cause is available through
// errors.Unwrap for logging and classification.
type TransportError struct {
	Method string
	Path   string

	cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("platform request %s %s failed: transport error", e.Method, e.Path)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.cause
}

func parseErrorResponse(status int, body []byte) *ErrorResponse {
	er := &ErrorResponse{}
	if err := json.Unmarshal(body, er); err != nil || (er.Code == "" && er.Message == "") {
		er = &ErrorResponse{Code: DefaultErrorCode, Message: DefaultErrorMessage}
	}
	if er.Code == "" {
		er.Code = er.Type
	}
	if er.Code == "" {
		er.Code = DefaultErrorCode
	}
	er.Status = status
	return er
}
