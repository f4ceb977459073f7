package platform

import (
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"connectkit/pkg/connect"
	"connectkit/pkg/logging"
)

// Platform API request headers.
const (
	HeaderSDKVersion     = "IFTTT-SDK-Version"
	HeaderSDKPlatform    = "IFTTT-SDK-Platform"
	HeaderSDKAnonymousID = "IFTTT-SDK-Anonymous-Id"
	HeaderInviteCode     = "IFTTT-Invite-Code"
)

// sdkInfoTransport adds SDK identification and the optional invite code to
// every request.
type sdkInfoTransport struct {
	anonymousID string
	inviteCode  string
	base        http.RoundTripper
}

func (t *sdkInfoTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set(HeaderSDKVersion, connect.SDKVersion)
	req2.Header.Set(HeaderSDKPlatform, connect.SDKPlatform)
	req2.Header.Set(HeaderSDKAnonymousID, t.anonymousID)
	if t.inviteCode != "" {
		req2.Header.Set(HeaderInviteCode, t.inviteCode)
	}
	return t.base.RoundTrip(req2)
}

// tokenHolder stores the platform user token shared by all calls of a Client.
type tokenHolder struct {
	mu    sync.RWMutex
	token *connect.PlatformToken
}

func (h *tokenHolder) get() *connect.PlatformToken {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *tokenHolder) set(token *connect.PlatformToken) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// clearIf drops the stored token if it is still token. A newer token set
// concurrently is kept.
func (h *tokenHolder) clearIf(token *connect.PlatformToken) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.token != nil && token != nil && h.token.Equal(token.RedactedToken) {
		h.token = nil
		return true
	}
	return false
}

// userTokenTransport attaches the platform user token as a bearer credential
// when one is set, and invalidates it when the platform answers 401.
type userTokenTransport struct {
	holder *tokenHolder
	base   http.RoundTripper
}

func (t *userTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.holder.get()
	if token == nil {
		return t.base.RoundTrip(req)
	}

	bearer := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token.Value(),
			TokenType:   "Bearer",
		}),
		Base: t.base,
	}
	resp, err := bearer.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		if t.holder.clearIf(token) {
			logging.Warn("Platform", "User token rejected with 401, clearing it")
		}
	}
	return resp, err
}
