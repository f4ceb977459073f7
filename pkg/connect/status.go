package connect

import "strings"

// ConnectionStatus is the state of a Connection for the current user.
type ConnectionStatus string

const (
	// StatusUnknown is reported for unauthenticated calls or when the user cannot be found.
	StatusUnknown ConnectionStatus = "unknown"
	// StatusNeverEnabled means the user has to go through the activation flow first.
	StatusNeverEnabled ConnectionStatus = "never_enabled"
	// StatusEnabled means the Connection is active for the user.
	StatusEnabled ConnectionStatus = "enabled"
	// StatusDisabled means the user turned the Connection off.
	StatusDisabled ConnectionStatus = "disabled"
)

// ParseConnectionStatus maps an API value to a ConnectionStatus.
// Unrecognised values map to StatusUnknown.
func ParseConnectionStatus(s string) ConnectionStatus {
	switch ConnectionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusNeverEnabled:
		return StatusNeverEnabled
	case StatusEnabled:
		return StatusEnabled
	case StatusDisabled:
		return StatusDisabled
	default:
		return StatusUnknown
	}
}

// String returns the API representation of the status.
func (s ConnectionStatus) String() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ConnectionStatus) UnmarshalText(text []byte) error {
	*s = ParseConnectionStatus(string(text))
	return nil
}

// CanToggle reports whether the status allows an explicit enable/disable call.
// A never enabled Connection has to go through the web authorization flow.
func (s ConnectionStatus) CanToggle() bool {
	return s == StatusEnabled || s == StatusDisabled
}
