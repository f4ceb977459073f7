package connect

import (
	"fmt"
	"net/url"
)

// NextStep is the outcome of a hosted web authorization flow.
type NextStep int

const (
	// NextStepUnknown covers missing or unrecognised next_step values.
	NextStepUnknown NextStep = iota
	// NextStepServiceConnection asks the app to connect the named service itself.
	NextStepServiceConnection
	// NextStepComplete means the user finished authorizing the Connection.
	NextStepComplete
	// NextStepError means the flow failed; ErrorType carries the reason.
	NextStepError
)

// String returns the wire representation of the step.
func (s NextStep) String() string {
	switch s {
	case NextStepServiceConnection:
		return "service_connection"
	case NextStepComplete:
		return "complete"
	case NextStepError:
		return "error"
	default:
		return "unknown"
	}
}

// Redirect query parameters.
const (
	ParamNextStep  = "next_step"
	ParamServiceID = "service_id"
	ParamErrorType = "error_type"
)

// ErrorTypeAccountCreation is reported when the platform could not create an account.
const ErrorTypeAccountCreation = "account_creation"

// RedirectResult is the parsed outcome of an inbound redirect URI. It is
// consumed once per redirect event.
type RedirectResult struct {
	NextStep  NextStep
	ServiceID string
	ErrorType string
	Params    url.Values
}

// IsComplete reports whether the flow finished successfully.
func (r RedirectResult) IsComplete() bool {
	return r.NextStep == NextStepComplete
}

// String implements fmt.Stringer.
func (r RedirectResult) String() string {
	switch r.NextStep {
	case NextStepServiceConnection:
		return fmt.Sprintf("%s(%s)", r.NextStep, r.ServiceID)
	case NextStepError:
		return fmt.Sprintf("%s(%s)", r.NextStep, r.ErrorType)
	default:
		return r.NextStep.String()
	}
}

// ParseRedirect parses a redirect URI into a RedirectResult. Only the
// query parameters are inspected, so the scheme and host can be anything
// the app registered (a custom scheme or a loopback callback URL).
func ParseRedirect(rawURI string) (RedirectResult, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return RedirectResult{NextStep: NextStepUnknown}, fmt.Errorf("invalid redirect uri: %w", err)
	}
	return ParseRedirectQuery(u.Query()), nil
}

// ParseRedirectQuery maps redirect query parameters to a RedirectResult.
// A service_connection step without a service_id is Unknown.
func ParseRedirectQuery(params url.Values) RedirectResult {
	result := RedirectResult{NextStep: NextStepUnknown, Params: params}

	switch params.Get(ParamNextStep) {
	case "service_connection":
		serviceID := params.Get(ParamServiceID)
		if serviceID == "" {
			return result
		}
		result.NextStep = NextStepServiceConnection
		result.ServiceID = serviceID
	case "complete":
		result.NextStep = NextStepComplete
	case "error":
		result.NextStep = NextStepError
		result.ErrorType = params.Get(ParamErrorType)
	}
	return result
}
