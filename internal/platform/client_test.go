package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectkit/pkg/connect"
)

type recordedRequest struct {
	method string
	path   string
	header http.Header
}

type fakePlatform struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   connect.ConnectionStatus
	token    string
}

func (p *fakePlatform) last() recordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func (p *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.requests = append(p.requests, recordedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone()})
	status := p.status
	token := p.token
	p.mu.Unlock()

	authorized := r.Header.Get("Authorization") == "Bearer "+token
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/v2/connections/c1" && r.Method == http.MethodGet:
		if !authorized {
			status = connect.StatusUnknown
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "c1", "name": "Demo", "user_status": string(status)})
	case r.URL.Path == "/v2/connections/c1/disable" || r.URL.Path == "/v2/connections/c1/reenable":
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","code":"unauthorized","message":"Invalid token"}`))
			return
		}
		next := connect.StatusDisabled
		if r.URL.Path == "/v2/connections/c1/reenable" {
			next = connect.StatusEnabled
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "c1", "user_status": string(next)})
	case r.URL.Path == "/v2/me":
		if !authorized {
			_ = json.NewEncoder(w).Encode(map[string]string{"authentication_level": "none"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"authentication_level": "user", "user_login": "alice"})
	case r.URL.Path == "/v2/account/find":
		if r.URL.Query().Get("email") == "alice@example.com" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	}
}

func newTestClient(t *testing.T, fp *fakePlatform, inviteCode string) *Client {
	t.Helper()
	server := httptest.NewServer(fp)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		BaseURL:     server.URL,
		AnonymousID: "anon-1",
		InviteCode:  inviteCode,
		HTTPClient:  server.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestClient_SDKHeaders(t *testing.T) {
	fp := &fakePlatform{status: connect.StatusEnabled, token: "U1"}
	client := newTestClient(t, fp, "abcd")

	_, err := client.ShowConnection(context.Background(), "c1")
	require.NoError(t, err)

	h := fp.last().header
	assert.Equal(t, connect.SDKVersion, h.Get(HeaderSDKVersion))
	assert.Equal(t, connect.SDKPlatform, h.Get(HeaderSDKPlatform))
	assert.Equal(t, "anon-1", h.Get(HeaderSDKAnonymousID))
	assert.Equal(t, "abcd", h.Get(HeaderInviteCode))
	assert.Empty(t, h.Get("Authorization"))
}

func TestClient_NoInviteCodeHeader(t *testing.T) {
	fp := &fakePlatform{}
	client := newTestClient(t, fp, "")

	_, err := client.User(context.Background())
	require.NoError(t, err)
	_, present := fp.last().header[HeaderInviteCode]
	assert.False(t, present)
}

func TestClient_GeneratesAnonymousID(t *testing.T) {
	client, err := NewClient(Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, client.AnonymousID())
}

func TestClient_ShowConnection(t *testing.T) {
	fp := &fakePlatform{status: connect.StatusEnabled, token: "U1"}
	client := newTestClient(t, fp, "")
	ctx := context.Background()

	conn, err := client.ShowConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, connect.StatusUnknown, conn.Status)

	client.SetUserToken(connect.NewPlatformToken("U1"))
	assert.True(t, client.IsUserAuthenticated())

	conn, err = client.ShowConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, connect.StatusEnabled, conn.Status)
	assert.Equal(t, "Bearer U1", fp.last().header.Get("Authorization"))
}

func TestClient_DisableAndReenable(t *testing.T) {
	fp := &fakePlatform{status: connect.StatusEnabled, token: "U1"}
	client := newTestClient(t, fp, "")
	client.SetUserToken(connect.NewPlatformToken("U1"))
	ctx := context.Background()

	conn, err := client.DisableConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, connect.StatusDisabled, conn.Status)
	assert.Equal(t, http.MethodPost, fp.last().method)

	conn, err = client.ReenableConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, connect.StatusEnabled, conn.Status)
	assert.Equal(t, "/v2/connections/c1/reenable", fp.last().path)
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	fp := &fakePlatform{status: connect.StatusEnabled, token: "U1"}
	client := newTestClient(t, fp, "")
	client.SetUserToken(connect.NewPlatformToken("stale"))

	_, err := client.DisableConnection(context.Background(), "c1")
	require.Error(t, err)

	var er *ErrorResponse
	require.True(t, errors.As(err, &er))
	assert.True(t, er.IsUnauthorized())
	assert.Equal(t, "unauthorized", er.Code)
	assert.Equal(t, "Invalid token", er.Message)
	assert.Equal(t, "unauthorized", er.FailureCode())
	assert.Nil(t, client.UserToken())
}

func TestClient_TransportErrorHidesCause(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := NewClient(Options{BaseURL: baseURL, AnonymousID: "anon-1"})
	require.NoError(t, err)

	_, err = client.ShowConnection(context.Background(), "c1")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, "/v2/connections/c1", te.Path)
	assert.Equal(t, "platform request GET /v2/connections/c1 failed: transport error", err.Error())
	assert.NotContains(t, err.Error(), "127.0.0.1")
	require.NotNil(t, errors.Unwrap(te))
	assert.Contains(t, errors.Unwrap(te).Error(), "connection refused")
}

func TestClient_TransportErrorKeepsCancellation(t *testing.T) {
	client := newTestClient(t, &fakePlatform{}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ShowConnection(ctx, "c1")

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_User(t *testing.T) {
	fp := &fakePlatform{token: "U1"}
	client := newTestClient(t, fp, "")

	user, err := client.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connect.AuthenticationNone, user.AuthenticationLevel)

	client.SetUserToken(connect.NewPlatformToken("U1"))
	user, err = client.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connect.AuthenticationUser, user.AuthenticationLevel)
	assert.Equal(t, "alice", user.UserLogin)
}

func TestClient_FindAccount(t *testing.T) {
	client := newTestClient(t, &fakePlatform{}, "")
	ctx := context.Background()

	found, err := client.FindAccount(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = client.FindAccount(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_UnparseableErrorBody(t *testing.T) {
	client := newTestClient(t, &fakePlatform{}, "")

	_, err := client.ShowConnection(context.Background(), "missing")
	require.Error(t, err)

	var er *ErrorResponse
	require.True(t, errors.As(err, &er))
	assert.Equal(t, http.StatusInternalServerError, er.Status)
	assert.Equal(t, DefaultErrorCode, er.Code)
	assert.Equal(t, DefaultErrorMessage, er.Message)
}
