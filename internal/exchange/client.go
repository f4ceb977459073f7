package exchange

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
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"connectkit/internal/pending"
	"connectkit/pkg/connect"
)

// DefaultHTTPTimeout is the default timeout for backend requests.
const DefaultHTTPTimeout = 10 * time.Second

// DefaultRetryMax is the default number of retries on transport errors and 5xx.
const DefaultRetryMax = 2

// maxResponseSize caps how much of a backend response body is read.
const maxResponseSize = 1 << 20

// Request kinds tracked in the pending registry.
const (
	OpLogin        pending.Kind = "login"
	OpTokenFetch   pending.Kind = "token_fetch"
	OpLoginURL     pending.Kind = "login_url"
	OpCodeExchange pending.Kind = "code_exchange"
)

// Backend endpoints.
const (
	pathLogIn     = "/mobile_api/log_in"
	pathToken     = "/mobile_api/get_ifttt_token"
	pathLoginURL  = "/mobile_api/get_login_url"
	pathUserToken = "/api/user_token"
)

// Options configures the exchange client.
type Options struct {
	// BaseURL is the app backend, e.g. http://localhost:8080.
	BaseURL string

	// HTTPClient is an optional custom HTTP client used as the transport
	// base for every call. When nil a retrying client is built.
	HTTPClient *http.Client

	// Timeout applies to each request. Defaults to DefaultHTTPTimeout.
	Timeout time.Duration

	// RetryMax is the number of retries for transport errors and 5xx
	// responses when HTTPClient is nil. Negative disables retries.
	RetryMax int

	// Policy decides whether superseded same-kind calls are cancelled.
	// Defaults to pending.CancelSuperseded.
	Policy pending.Policy

	// Logger receives debug output. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Client bridges app user identifiers to platform credentials through the
// app backend. Every call is tracked by kind so it can be cancelled in bulk.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	registry   *pending.Registry
	logger     *slog.Logger

	mu      sync.RWMutex
	current *Session
}

// NewClient creates a new exchange client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultHTTPTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newRetryingClient(opts.RetryMax, timeout, logger)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		registry:   pending.New(opts.Policy),
		logger:     logger,
	}, nil
}

// newRetryingClient returns an *http.Client that retries transport errors
// and 5xx responses. After the last attempt the response is passed through
// unchanged so status codes still reach the caller.
func newRetryingClient(retryMax int, timeout time.Duration, logger *slog.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	if retryMax < 0 {
		retryMax = 0
	}
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = logger
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = timeout

	client := rc.StandardClient()
	client.Timeout = timeout
	return client
}

// Current returns the session installed by the most recently completed
// successful Login, or nil.
func (c *Client) Current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// ClearSession discards the current session.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Pending returns the number of tracked in-flight calls.
func (c *Client) Pending() int {
	return c.registry.Len()
}

// CancelAll cancels every in-flight call. Calls that complete afterwards
// return ErrCancelled and never install a session.
func (c *Client) CancelAll() {
	c.mu.Lock()
	c.registry.CancelAll()
	c.mu.Unlock()
}

type tokenResponse struct {
	Token *string `json:"token"`
}

type loginURLResponse struct {
	LoginURL string `json:"login_url"`
}

type userTokenResponse struct {
	Type      string  `json:"type"`
	Code      *string `json:"code"`
	UserToken *string `json:"user_token"`
}

// failureBody is the optional error body of a non-2xx backend response.
type failureBody struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// Login authenticates username against the backend and returns a new Session.
// On success the session also becomes the client's current session. Failures
// never replace the current session.
func (c *Client) Login(ctx context.Context, username string) (*Session, error) {
	ctx, h := c.registry.Track(ctx, OpLogin)
	defer c.registry.Complete(h)

	q := url.Values{"username": {username}}
	var resp tokenResponse
	if err := c.post(ctx, c.httpClient, "login", pathLogIn, q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Token == nil || *resp.Token == "" {
		return nil, unsuccessfulError("login", http.StatusOK, "", errors.New("empty token in login response"))
	}

	session := newSession(username, *resp.Token, c.httpClient)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cancelled(ctx) {
		return nil, ErrCancelled
	}
	c.current = session
	c.logger.Debug("Installed session", "user", username, "seq", h.Seq)
	return session, nil
}

// FetchPlatformToken exchanges the session for a platform user token. A nil
// token with a nil error means the user has not authorized the platform
// service yet.
func (c *Client) FetchPlatformToken(ctx context.Context, s *Session) (*connect.PlatformToken, error) {
	if s == nil {
		return nil, ErrNotLoggedIn
	}
	ctx, h := c.registry.Track(ctx, OpTokenFetch)
	defer c.registry.Complete(h)

	var resp tokenResponse
	if err := c.post(ctx, s.httpClient, "token fetch", pathToken, nil, nil, &resp); err != nil {
		return nil, err
	}
	if cancelled(ctx) {
		return nil, ErrCancelled
	}
	if resp.Token == nil {
		c.logger.Debug("No platform token for user", "user", s.UserID)
		return nil, nil
	}
	return connect.NewPlatformToken(*resp.Token), nil
}

// GetLoginURI requests a one-time URL that logs the user into the hosted
// web surface and then redirects to redirectTo.
func (c *Client) GetLoginURI(ctx context.Context, s *Session, redirectTo string) (*url.URL, error) {
	if s == nil {
		return nil, ErrNotLoggedIn
	}
	ctx, h := c.registry.Track(ctx, OpLoginURL)
	defer c.registry.Complete(h)

	q := url.Values{"redirect_to": {redirectTo}}
	var resp loginURLResponse
	if err := c.post(ctx, s.httpClient, "login url", pathLoginURL, q, nil, &resp); err != nil {
		return nil, err
	}
	if cancelled(ctx) {
		return nil, ErrCancelled
	}
	u, err := url.Parse(resp.LoginURL)
	if err != nil || resp.LoginURL == "" {
		return nil, unsuccessfulError("login url", http.StatusOK, "", fmt.Errorf("invalid login url %q", resp.LoginURL))
	}
	return u, nil
}

// ExchangeCode trades an OAuth code from the app's own authorization server
// for a platform user token. A non-null failure code in the response body is
// returned as an *Error carrying that code.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*connect.PlatformToken, error) {
	ctx, h := c.registry.Track(ctx, OpCodeExchange)
	defer c.registry.Complete(h)

	form := url.Values{"code": {code}}
	var resp userTokenResponse
	if err := c.post(ctx, c.httpClient, "code exchange", pathUserToken, nil, form, &resp); err != nil {
		return nil, err
	}
	if cancelled(ctx) {
		return nil, ErrCancelled
	}
	if resp.Code != nil {
		return nil, unsuccessfulError("code exchange", http.StatusOK, *resp.Code, nil)
	}
	if resp.UserToken == nil {
		return nil, nil
	}
	return connect.NewPlatformToken(*resp.UserToken), nil
}

// post sends a POST request to path and decodes a JSON response into out.
func (c *Client) post(ctx context.Context, client *http.Client, op, path string, query, form url.Values, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return transportError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(req)
	if err != nil {
		if cancelled(ctx) {
			return ErrCancelled
		}
		c.logger.Debug("Backend request failed", "op", op, "error", err)
		return transportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if cancelled(ctx) {
			return ErrCancelled
		}
		return transportError(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var fb failureBody
		_ = json.Unmarshal(data, &fb)
		c.logger.Debug("Backend returned unsuccessful status", "op", op, "status", resp.StatusCode, "code", fb.Code)
		return unsuccessfulError(op, resp.StatusCode, fb.Code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return transportError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
