package lifecycle

import (
	"context"
	"net/url"
	"sync"

	"connectkit/internal/exchange"
	"connectkit/pkg/connect"
)

type fakeExchanger struct {
	mu sync.Mutex

	login    func(ctx context.Context, userID string) (*exchange.Session, error)
	token    func(ctx context.Context, s *exchange.Session) (*connect.PlatformToken, error)
	loginURI func(ctx context.Context, s *exchange.Session, redirectTo string) (*url.URL, error)

	logins      []string
	tokenCalls  int
	redirectTos []string
	cleared     int
	cancelAlls  int
}

func newSession(userID string) *exchange.Session {
	return &exchange.Session{UserID: userID, AppToken: connect.NewRedactedToken("app-" + userID)}
}

func (f *fakeExchanger) Login(ctx context.Context, userID string) (*exchange.Session, error) {
	f.mu.Lock()
	f.logins = append(f.logins, userID)
	fn := f.login
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, userID)
	}
	return newSession(userID), nil
}

func (f *fakeExchanger) FetchPlatformToken(ctx context.Context, s *exchange.Session) (*connect.PlatformToken, error) {
	f.mu.Lock()
	f.tokenCalls++
	fn := f.token
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, s)
	}
	return connect.NewPlatformToken("T1"), nil
}

func (f *fakeExchanger) GetLoginURI(ctx context.Context, s *exchange.Session, redirectTo string) (*url.URL, error) {
	f.mu.Lock()
	f.redirectTos = append(f.redirectTos, redirectTo)
	fn := f.loginURI
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, s, redirectTo)
	}
	return url.Parse("https://backend.test/login?token=once&redirect_to=" + url.QueryEscape(redirectTo))
}

func (f *fakeExchanger) ClearSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeExchanger) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAlls++
}

func (f *fakeExchanger) tokenCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

type fakePlatform struct {
	mu sync.Mutex

	show    func(ctx context.Context, call int, token *connect.PlatformToken) (*connect.Connection, error)
	disable func(ctx context.Context) (*connect.Connection, error)
	enable  func(ctx context.Context) (*connect.Connection, error)

	userToken *connect.PlatformToken
	showCalls int
}

func (p *fakePlatform) SetUserToken(token *connect.PlatformToken) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userToken = token
}

func (p *fakePlatform) currentToken() *connect.PlatformToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userToken
}

func (p *fakePlatform) showCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showCalls
}

func (p *fakePlatform) ShowConnection(ctx context.Context, id string) (*connect.Connection, error) {
	p.mu.Lock()
	call := p.showCalls
	p.showCalls++
	fn := p.show
	token := p.userToken
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, call, token)
	}
	return statusFor(token), nil
}

func (p *fakePlatform) DisableConnection(ctx context.Context, id string) (*connect.Connection, error) {
	if p.disable != nil {
		return p.disable(ctx)
	}
	return testConnection(connect.StatusDisabled), nil
}

func (p *fakePlatform) ReenableConnection(ctx context.Context, id string) (*connect.Connection, error) {
	if p.enable != nil {
		return p.enable(ctx)
	}
	return testConnection(connect.StatusEnabled), nil
}

func testConnection(status connect.ConnectionStatus) *connect.Connection {
	return &connect.Connection{
		ID:     "fWj4fxYg",
		Name:   "Grocery Express",
		Status: status,
		Services: []connect.Service{
			{ID: "grocery_express", Name: "Grocery Express", IsPrimary: true},
		},
	}
}

// statusFor answers like the platform: without a user token the user has
// never enabled the Connection.
func statusFor(token *connect.PlatformToken) *connect.Connection {
	if token == nil {
		return testConnection(connect.StatusNeverEnabled)
	}
	return testConnection(connect.StatusEnabled)
}

type recorder struct {
	mu        sync.Mutex
	states    []string
	errors    []ErrorEvent
	redirects []connect.RedirectResult
}

func (r *recorder) OnStateChanged(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.String())
}

func (r *recorder) OnError(e ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

func (r *recorder) OnRedirect(res connect.RedirectResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, res)
}

func (r *recorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func (r *recorder) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorEvent(nil), r.errors...)
}

func (r *recorder) Redirects() []connect.RedirectResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]connect.RedirectResult(nil), r.redirects...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = nil
	r.errors = nil
	r.redirects = nil
}

// gate blocks a fake call until released with a response.
type gate[T any] struct {
	entered chan struct{}
	release chan T
	ctxErr  chan error
}

func newGate[T any]() *gate[T] {
	return &gate[T]{
		entered: make(chan struct{}),
		release: make(chan T),
		ctxErr:  make(chan error, 1),
	}
}

// wait ignores ctx so that a response can arrive after cancellation, as it
// does with a real network.
func (g *gate[T]) wait(ctx context.Context) T {
	close(g.entered)
	v := <-g.release
	g.ctxErr <- ctx.Err()
	return v
}
