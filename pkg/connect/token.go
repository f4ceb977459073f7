package connect

// RedactedToken wraps a sensitive token string to prevent accidental logging.
//
// It implements fmt.Stringer and the text/JSON marshalers to return
// "[REDACTED]" instead of the actual token value, so app tokens and platform
// user tokens never leak through log lines, error strings or %v formatting.
//
//	token := connect.NewRedactedToken("secret-token-value")
//	fmt.Println(token)           // prints: [REDACTED]
//	actualValue := token.Value() // returns: "secret-token-value"
type RedactedToken struct {
	value string
}

// NewRedactedToken creates a new RedactedToken wrapping the given value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the actual token value.
// Only call it when the token goes into an Authorization header. Never log it.
func (t RedactedToken) Value() string {
	return t.value
}

// String implements fmt.Stringer.
func (t RedactedToken) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (t RedactedToken) GoString() string {
	return "connect.RedactedToken{[REDACTED]}"
}

// IsEmpty returns true if the token value is empty.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

// Equal reports whether both tokens wrap the same value.
func (t RedactedToken) Equal(other RedactedToken) bool {
	return t.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// MarshalJSON implements json.Marshaler.
func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// PlatformToken is the platform user token issued once the user authorized
// a Connection. A nil *PlatformToken means the user never authorized the
// platform service, which is a valid outcome and not an error.
type PlatformToken struct {
	RedactedToken
}

// NewPlatformToken returns a PlatformToken for value, or nil when value is empty.
func NewPlatformToken(value string) *PlatformToken {
	if value == "" {
		return nil
	}
	return &PlatformToken{RedactedToken: NewRedactedToken(value)}
}

// GoString implements fmt.GoStringer for %#v formatting.
func (t PlatformToken) GoString() string {
	return "connect.PlatformToken{[REDACTED]}"
}

// TokenValue returns the raw token, or "" for a nil token.
func (t *PlatformToken) TokenValue() string {
	if t == nil {
		return ""
	}
	return t.value
}
