package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"connectkit/pkg/connect"
)

// DefaultBaseURL is the production platform API.
const DefaultBaseURL = "https://connect.ifttt.com"

// DefaultTimeout is the default timeout for platform API requests.
const DefaultTimeout = 10 * time.Second

// Options configures the platform API client.
type Options struct {
	BaseURL string
	// AnonymousID identifies this installation. A random id is generated when empty.
	AnonymousID string
	InviteCode  string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Client talks to the platform's Connection API. The platform user token is
// set with SetUserToken once the exchange client obtained one.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokens      *tokenHolder
	anonymousID string
	logger      *slog.Logger
}

// NewClient creates a new platform API client.
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid platform base URL: %w", err)
	}

	anonymousID := opts.AnonymousID
	if anonymousID == "" {
		anonymousID = uuid.NewString()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	var baseTransport http.RoundTripper = http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		baseTransport = opts.HTTPClient.Transport
	}

	tokens := &tokenHolder{}
	transport := &sdkInfoTransport{
		anonymousID: anonymousID,
		inviteCode:  opts.InviteCode,
		base: &userTokenTransport{
			holder: tokens,
			base:   baseTransport,
		},
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Transport: transport, Timeout: timeout},
		tokens:      tokens,
		anonymousID: anonymousID,
		logger:      logger,
	}, nil
}

// AnonymousID returns the installation id sent with every request.
func (c *Client) AnonymousID() string {
	return c.anonymousID
}

// SetUserToken sets or, with nil, clears the platform user token.
func (c *Client) SetUserToken(token *connect.PlatformToken) {
	c.tokens.set(token)
}

// UserToken returns the current platform user token, or nil.
func (c *Client) UserToken() *connect.PlatformToken {
	return c.tokens.get()
}

// IsUserAuthenticated reports whether a platform user token is set.
func (c *Client) IsUserAuthenticated() bool {
	return c.tokens.get() != nil
}

// ShowConnection fetches a Connection. Without a user token the status is
// reported as unknown by the platform.
func (c *Client) ShowConnection(ctx context.Context, id string) (*connect.Connection, error) {
	var conn connect.Connection
	if err := c.do(ctx, http.MethodGet, "/v2/connections/"+url.PathEscape(id), nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DisableConnection disables a Connection for the current user.
func (c *Client) DisableConnection(ctx context.Context, id string) (*connect.Connection, error) {
	var conn connect.Connection
	if err := c.do(ctx, http.MethodPost, "/v2/connections/"+url.PathEscape(id)+"/disable", nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// ReenableConnection re-enables a previously disabled Connection.
func (c *Client) ReenableConnection(ctx context.Context, id string) (*connect.Connection, error) {
	var conn connect.Connection
	if err := c.do(ctx, http.MethodPost, "/v2/connections/"+url.PathEscape(id)+"/reenable", nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// User returns the platform's view of the caller.
func (c *Client) User(ctx context.Context) (*connect.User, error) {
	var user connect.User
	if err := c.do(ctx, http.MethodGet, "/v2/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAccount reports whether a platform account exists for email.
func (c *Client) FindAccount(ctx context.Context, email string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/v2/account/find", url.Values{"email": {email}}, nil)
	if err == nil {
		return true, nil
	}
	var er *ErrorResponse
	if errors.As(err, &er) && er.Status == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Platform call failed", "method", method, "path", path, "error", err)
		return &TransportError{Method: method, Path: path, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Method: method, Path: path, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		er := parseErrorResponse(resp.StatusCode, body)
		c.logger.Debug("Platform call failed", "method", method, "path", path, "status", resp.StatusCode, "code", er.Code)
		return er
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Method: method, Path: path, cause: fmt.Errorf("failed to decode platform response: %w", err)}
	}
	return nil
}
