// Package exchange implements the token exchange client: app-level login
// against the app backend, exchange of the resulting session for a platform
// user token, and retrieval of one-time login URLs for the hosted
// authorization flow.
//
// A successful Login returns an immutable *Session carrying the app token.
// The token is attached as a bearer credential (through oauth2.Transport) to
// every call made with that session, so concurrent logins never mutate a
// credential another call is using. The client additionally remembers the
// session of the most recently completed successful login as Current.
//
// All calls are tracked by kind in a pending.Registry. CancelAll aborts every
// in-flight call; calls that complete afterwards return ErrCancelled.
//
// Failures are reported as *Error with Kind ErrorKindTransport or
// ErrorKindUnsuccessful and an optional machine code such as "unauthorized".
// A missing platform token is not a failure: FetchPlatformToken returns
// nil, nil.
package exchange
