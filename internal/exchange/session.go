package exchange

import (
	"net/http"

	"golang.org/x/oauth2"

	"connectkit/pkg/connect"
)

// Session is an authenticated app-level session. It is immutable: a new
// Session is created by every successful Login and its app token is attached
// as a bearer credential to every call made through it.
type Session struct {
	UserID   string
	AppToken connect.RedactedToken

	httpClient *http.Client
}

func newSession(userID, token string, base *http.Client) *Session {
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
		Base: base.Transport,
	}
	return &Session{
		UserID:   userID,
		AppToken: connect.NewRedactedToken(token),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   base.Timeout,
		},
	}
}

// HTTPClient returns the client that attaches the session's app token.
func (s *Session) HTTPClient() *http.Client {
	return s.httpClient
}

// String implements fmt.Stringer without exposing the token.
func (s *Session) String() string {
	if s == nil {
		return "<no session>"
	}
	return "session(" + s.UserID + ")"
}
