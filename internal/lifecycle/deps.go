package lifecycle

import (
	"context"
	"net/url"

	"connectkit/internal/exchange"
	"connectkit/pkg/connect"
)

// TokenExchanger is the token exchange client the machine drives.
// *exchange.Client implements it.
type TokenExchanger interface {
	Login(ctx context.Context, userID string) (*exchange.Session, error)
	FetchPlatformToken(ctx context.Context, s *exchange.Session) (*connect.PlatformToken, error)
	GetLoginURI(ctx context.Context, s *exchange.Session, redirectTo string) (*url.URL, error)
	ClearSession()
	CancelAll()
}

// ConnectionAPI is the platform Connection API. *platform.Client implements it.
type ConnectionAPI interface {
	SetUserToken(token *connect.PlatformToken)
	ShowConnection(ctx context.Context, id string) (*connect.Connection, error)
	DisableConnection(ctx context.Context, id string) (*connect.Connection, error)
	ReenableConnection(ctx context.Context, id string) (*connect.Connection, error)
}

// AccountFinder looks up whether a platform account exists for an email.
// When available it selects the login or create-account variant of the
// hosted flow. *platform.Client implements it.
type AccountFinder interface {
	FindAccount(ctx context.Context, email string) (bool, error)
}

// CredentialProvider supplies the app user identifier, e.g. the stored email.
type CredentialProvider interface {
	UserID() string
}

// CredentialFunc adapts a function to a CredentialProvider.
type CredentialFunc func() string

// UserID implements CredentialProvider.
func (f CredentialFunc) UserID() string {
	return f()
}
