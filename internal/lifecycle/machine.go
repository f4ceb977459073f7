package lifecycle

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"connectkit/internal/exchange"
	"connectkit/internal/pending"
	"connectkit/pkg/connect"
	"connectkit/pkg/logging"
)

// Request kinds tracked by the machine. Only the latest request of a kind
// may change state.
const (
	kindLogin      pending.Kind = "login"
	kindToken      pending.Kind = "token"
	kindConnection pending.Kind = "connection"
	kindToggle     pending.Kind = "toggle"
	kindLoginURL   pending.Kind = "login_url"
)

const defaultQueueSize = 64

// Options configures a Machine.
type Options struct {
	Exchanger TokenExchanger
	Platform  ConnectionAPI

	// Accounts is optional. See AccountFinder.
	Accounts AccountFinder

	// Credentials is optional. It supplies the user id when a completed
	// redirect arrives without a session.
	Credentials CredentialProvider

	ConnectionID string
	EmbedBaseURL string
	InviteCode   string
	AnonymousID  string

	// Listener defaults to a no-op listener.
	Listener Listener

	// Dispatcher defaults to a Queue owned and closed by the machine.
	Dispatcher Dispatcher

	// Policy decides whether superseded same-kind requests are cancelled.
	Policy pending.Policy

	// Metrics is optional.
	Metrics *Metrics
}

// Machine owns the connection authorization lifecycle.
//
// Operations return immediately with a Task. Network calls run on their own
// goroutines and every result is applied on the Dispatcher, where the
// Listener is also invoked. A result is applied only if its request is still
// the latest of its kind; stale results are dropped without side effects.
type Machine struct {
	exchanger    TokenExchanger
	platform     ConnectionAPI
	accounts     AccountFinder
	credentials  CredentialProvider
	connectionID string
	embedBaseURL string
	inviteCode   string
	anonymousID  string
	listener     Listener
	dispatcher   Dispatcher
	ownQueue     *Queue
	registry     *pending.Registry
	metrics      *Metrics

	ctx       context.Context
	cancel    context.CancelFunc
	closedCh  chan struct{}
	closeOnce sync.Once
	isClosed  atomic.Bool

	// tickets orders status-producing responses across kinds.
	tickets atomic.Uint64

	refreshMu   sync.Mutex
	stopRefresh context.CancelFunc

	mu               sync.Mutex
	state            State
	session          *exchange.Session
	token            *connect.PlatformToken
	connection       *connect.Connection
	awaitingRedirect bool
	toggling         bool
	appliedTicket    uint64
	closed           bool
}

// New creates a Machine in StateUnauthenticated.
func New(opts Options) (*Machine, error) {
	if opts.Exchanger == nil {
		return nil, errors.New("token exchanger is required")
	}
	if opts.Platform == nil {
		return nil, errors.New("connection API is required")
	}
	if opts.ConnectionID == "" {
		return nil, errors.New("connection id is required")
	}

	listener := opts.Listener
	if listener == nil {
		listener = ListenerFuncs{}
	}

	m := &Machine{
		exchanger:    opts.Exchanger,
		platform:     opts.Platform,
		accounts:     opts.Accounts,
		credentials:  opts.Credentials,
		connectionID: opts.ConnectionID,
		embedBaseURL: opts.EmbedBaseURL,
		inviteCode:   opts.InviteCode,
		anonymousID:  opts.AnonymousID,
		listener:     listener,
		dispatcher:   opts.Dispatcher,
		registry:     pending.New(opts.Policy),
		metrics:      opts.Metrics,
		closedCh:     make(chan struct{}),
		state:        StateUnauthenticated,
	}
	if m.dispatcher == nil {
		m.ownQueue = NewQueue(defaultQueueSize)
		m.dispatcher = m.ownQueue
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m, nil
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Pending returns the number of requests in flight.
func (m *Machine) Pending() int {
	return m.registry.Len()
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            m.state,
		TokenPresent:     m.token != nil,
		AwaitingRedirect: m.awaitingRedirect,
		Toggling:         m.toggling,
	}
	if m.session != nil {
		snap.UserID = m.session.UserID
	}
	if m.connection != nil {
		conn := *m.connection
		conn.Services = append([]connect.Service(nil), m.connection.Services...)
		snap.Connection = &conn
	}
	return snap
}

// setStateLocked moves to s and reports whether the state changed.
func (m *Machine) setStateLocked(s State) bool {
	if m.state == s {
		return false
	}
	logging.Debug("Lifecycle", "State %s -> %s", m.state, s)
	m.metrics.recordTransition(m.state, s)
	m.state = s
	return true
}

// settledStateLocked derives the resting state from what is known. It is
// used to restore the prior valid state after a failure.
func (m *Machine) settledStateLocked() State {
	switch {
	case m.session == nil:
		return StateUnauthenticated
	case m.connection != nil:
		return StateDisplayed
	default:
		return StateReady
	}
}

// outcome is the effect of applying one result on the dispatcher.
type outcome struct {
	applied  bool
	stale    bool
	emit     bool
	failure  *ErrorEvent
	redirect *connect.RedirectResult
}

// commit applies update on the dispatcher under the state lock, notifies
// the listener and waits for the result. It must not be called from the
// dispatcher goroutine.
func (m *Machine) commit(update func() outcome) outcome {
	resCh := make(chan outcome, 1)
	ok := m.dispatcher.Dispatch(func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			resCh <- outcome{}
			return
		}
		out := update()
		snap := m.snapshotLocked()
		m.mu.Unlock()

		if out.redirect != nil && !m.isClosed.Load() {
			m.listener.OnRedirect(*out.redirect)
		}
		if out.emit && !m.isClosed.Load() {
			m.listener.OnStateChanged(snap)
		}
		if out.failure != nil {
			m.metrics.recordError(out.failure.Op, out.failure.Code)
			logging.Warn("Lifecycle", "%s failed: %v", out.failure.Op, out.failure.Err)
			if !m.isClosed.Load() {
				m.listener.OnError(*out.failure)
			}
		}
		resCh <- out
	})
	if !ok {
		return outcome{}
	}
	select {
	case out := <-resCh:
		return out
	case <-m.closedCh:
		return outcome{}
	}
}

// drop records a stale response.
func (m *Machine) drop(kind pending.Kind) {
	logging.Debug("Lifecycle", "Dropping stale %s response", kind)
	m.metrics.recordDropped(string(kind))
}

func failureEvent(op Operation, err error) *ErrorEvent {
	return &ErrorEvent{Op: op, Err: err, Code: failureCode(err)}
}

// Login logs userID into the app backend and then resolves the platform
// token and the Connection. On failure the machine returns to
// StateUnauthenticated, or to its prior state when a session existed.
func (m *Machine) Login(userID string) *Task[Snapshot] {
	if m.isClosed.Load() {
		return failedTask[Snapshot](ErrClosed)
	}
	if userID == "" {
		return failedTask[Snapshot](errors.New("user id is required"))
	}

	task := newTask[Snapshot]()
	ctx, h := m.registry.Track(m.ctx, kindLogin)
	go m.runLogin(ctx, h, userID, task)
	return task
}

func (m *Machine) runLogin(ctx context.Context, h pending.Handle, userID string, task *Task[Snapshot]) {
	out := m.commit(func() outcome {
		if !m.registry.IsCurrent(h) {
			return outcome{}
		}
		// Requests bound to the previous session are void.
		for _, k := range []pending.Kind{kindToken, kindConnection, kindToggle, kindLoginURL} {
			m.registry.CancelKind(k)
		}
		m.toggling = false
		m.setStateLocked(StateLoggingIn)
		return outcome{applied: true, emit: true}
	})
	if !out.applied {
		m.registry.Cancel(h)
		task.finish(Snapshot{}, ErrCancelled)
		return
	}

	started := time.Now()
	session, err := m.exchanger.Login(ctx, userID)
	m.metrics.observe(string(kindLogin), started)

	out = m.commit(func() outcome {
		if !m.registry.Complete(h) {
			m.drop(kindLogin)
			return outcome{}
		}
		if err != nil {
			if exchange.IsCancelled(err) {
				return outcome{}
			}
			m.setStateLocked(m.settledStateLocked())
			return outcome{applied: true, emit: true, failure: failureEvent(OpLogin, err)}
		}
		m.session = session
		m.token = nil
		m.connection = nil
		m.appliedTicket = m.tickets.Load()
		m.platform.SetUserToken(nil)
		m.setStateLocked(StateTokenPending)
		logging.Info("Lifecycle", "Logged in as %s", session.UserID)
		return outcome{applied: true, emit: true}
	})
	switch {
	case !out.applied:
		task.finish(Snapshot{}, ErrCancelled)
	case err != nil:
		task.finish(m.Snapshot(), err)
	default:
		err := m.sync(session)
		task.finish(m.Snapshot(), err)
	}
}

// sync resolves the platform token and then fetches the Connection.
func (m *Machine) sync(s *exchange.Session) error {
	proceed, err := m.resolveToken(s)
	if err != nil || !proceed {
		return err
	}
	return m.fetchConnection(s, m.issueStatus(kindConnection))
}

// statusRequest is a registered request whose response carries a
// Connection status. Tickets order such responses across kinds.
type statusRequest struct {
	ctx    context.Context
	handle pending.Handle
	ticket uint64
}

func (m *Machine) issueStatus(kind pending.Kind) statusRequest {
	ctx, h := m.registry.Track(m.ctx, kind)
	return statusRequest{ctx: ctx, handle: h, ticket: m.tickets.Add(1)}
}

func (m *Machine) resolveToken(s *exchange.Session) (bool, error) {
	ctx, h := m.registry.Track(m.ctx, kindToken)

	out := m.commit(func() outcome {
		if !m.registry.IsCurrent(h) || m.session != s {
			return outcome{}
		}
		// A connection fetch issued before this token fetch would show a
		// status resolved with the old token.
		m.registry.CancelKind(kindConnection)
		changed := m.setStateLocked(StateTokenPending)
		return outcome{applied: true, emit: changed}
	})
	if !out.applied {
		m.registry.Cancel(h)
		return false, ErrCancelled
	}

	started := time.Now()
	token, err := m.exchanger.FetchPlatformToken(ctx, s)
	m.metrics.observe(string(kindToken), started)

	out = m.commit(func() outcome {
		if !m.registry.Complete(h) || m.session != s {
			m.drop(kindToken)
			return outcome{}
		}
		if err != nil {
			if exchange.IsCancelled(err) {
				return outcome{}
			}
			if exchange.FailureCode(err) == exchange.CodeUnauthorized {
				// The user has not connected the service yet: show the entry UI.
				m.token = nil
				m.platform.SetUserToken(nil)
				m.setStateLocked(StateReady)
				return outcome{applied: true, emit: true}
			}
			m.setStateLocked(m.settledStateLocked())
			return outcome{applied: true, emit: true, failure: failureEvent(OpTokenFetch, err)}
		}
		m.token = token
		m.platform.SetUserToken(token)
		m.setStateLocked(StateReady)
		return outcome{applied: true, emit: true}
	})
	switch {
	case !out.applied:
		return false, ErrCancelled
	case out.failure != nil:
		return false, err
	default:
		return true, nil
	}
}

func (m *Machine) fetchConnection(s *exchange.Session, req statusRequest) error {
	ctx, h, ticket := req.ctx, req.handle, req.ticket

	out := m.commit(func() outcome {
		if !m.registry.IsCurrent(h) || m.session != s {
			return outcome{}
		}
		changed := m.setStateLocked(StateFetchingConnection)
		return outcome{applied: true, emit: changed}
	})
	if !out.applied {
		m.registry.Cancel(h)
		return ErrCancelled
	}

	started := time.Now()
	conn, err := m.platform.ShowConnection(ctx, m.connectionID)
	m.metrics.observe(string(kindConnection), started)

	out = m.commit(func() outcome {
		if !m.registry.Complete(h) || m.session != s {
			m.drop(kindConnection)
			return outcome{}
		}
		if err != nil && errors.Is(err, context.Canceled) {
			m.setStateLocked(m.settledStateLocked())
			return outcome{emit: true}
		}
		if ticket < m.appliedTicket {
			// A newer status already landed.
			m.drop(kindConnection)
			m.setStateLocked(m.settledStateLocked())
			return outcome{stale: true, emit: true}
		}
		if err != nil {
			if isTokenRejected(err) {
				m.token = nil
			}
			m.setStateLocked(m.settledStateLocked())
			return outcome{applied: true, emit: true, failure: failureEvent(OpConnectionFetch, err)}
		}
		m.connection = conn
		m.appliedTicket = ticket
		m.setStateLocked(StateDisplayed)
		return outcome{applied: true, emit: true}
	})
	switch {
	case out.stale:
		return nil
	case !out.applied:
		return ErrCancelled
	case out.failure != nil:
		return err
	default:
		return nil
	}
}

// FetchConnection re-fetches the Connection with the current session.
// Allowed once the platform token is resolved.
func (m *Machine) FetchConnection() *Task[Snapshot] {
	if m.isClosed.Load() {
		return failedTask[Snapshot](ErrClosed)
	}

	m.mu.Lock()
	snap := m.snapshotLocked()
	session := m.session
	m.mu.Unlock()

	switch snap.State {
	case StateReady, StateFetchingConnection, StateDisplayed:
	default:
		return failedTask[Snapshot](invalidState(OpConnectionFetch, snap, ""))
	}

	task := newTask[Snapshot]()
	req := m.issueStatus(kindConnection)
	go func() {
		err := m.fetchConnection(session, req)
		task.finish(m.Snapshot(), err)
	}()
	return task
}

// Refresh re-resolves the platform token and then re-fetches the Connection.
func (m *Machine) Refresh() *Task[Snapshot] {
	if m.isClosed.Load() {
		return failedTask[Snapshot](ErrClosed)
	}

	m.mu.Lock()
	session := m.session
	snap := m.snapshotLocked()
	m.mu.Unlock()
	if session == nil {
		return failedTask[Snapshot](invalidState(OpTokenFetch, snap, "log in first"))
	}

	task := newTask[Snapshot]()
	go func() {
		err := m.sync(session)
		task.finish(m.Snapshot(), err)
	}()
	return task
}

// HandleRedirect consumes the outcome of the hosted authorization flow and
// clears AwaitingRedirect. A completed flow re-resolves the platform token,
// since authorization may just have happened out of band, and then re-fetches
// the Connection. Any other outcome causes no fetch.
func (m *Machine) HandleRedirect(result connect.RedirectResult) *Task[Snapshot] {
	if m.isClosed.Load() {
		return failedTask[Snapshot](ErrClosed)
	}

	task := newTask[Snapshot]()
	go func() {
		var (
			session *exchange.Session
			userID  string
		)
		out := m.commit(func() outcome {
			m.awaitingRedirect = false
			rr := result
			o := outcome{applied: true, emit: true, redirect: &rr}
			if !result.IsComplete() {
				return o
			}
			session = m.session
			if session == nil {
				if m.credentials != nil {
					userID = m.credentials.UserID()
				}
				if userID == "" {
					o.failure = &ErrorEvent{Op: OpRedirect, Err: ErrNotLoggedIn}
				}
			}
			return o
		})

		switch {
		case !out.applied:
			task.finish(Snapshot{}, ErrCancelled)
		case !result.IsComplete():
			task.finish(m.Snapshot(), nil)
		case session != nil:
			err := m.sync(session)
			task.finish(m.Snapshot(), err)
		case userID != "":
			logging.Debug("Lifecycle", "Redirect completed without a session, logging in")
			snap, err := m.Login(userID).Result()
			task.finish(snap, err)
		default:
			task.finish(m.Snapshot(), ErrNotLoggedIn)
		}
	}()
	return task
}

// HandleRedirectURI parses rawURI and hands it to HandleRedirect.
func (m *Machine) HandleRedirectURI(rawURI string) *Task[Snapshot] {
	result, err := connect.ParseRedirect(rawURI)
	if err != nil {
		return failedTask[Snapshot](err)
	}
	return m.HandleRedirect(result)
}

// Enable re-enables a disabled Connection. The status changes only after the
// platform confirmed the call.
func (m *Machine) Enable() *Task[*connect.Connection] {
	return m.toggle(true)
}

// Disable disables an enabled Connection. The status changes only after the
// platform confirmed the call.
func (m *Machine) Disable() *Task[*connect.Connection] {
	return m.toggle(false)
}

func (m *Machine) toggle(enable bool) *Task[*connect.Connection] {
	op, want := OpDisable, connect.StatusEnabled
	if enable {
		op, want = OpEnable, connect.StatusDisabled
	}
	if m.isClosed.Load() {
		return failedTask[*connect.Connection](ErrClosed)
	}

	m.mu.Lock()
	snap := m.snapshotLocked()
	session := m.session
	m.mu.Unlock()

	if snap.Connection == nil || (snap.State != StateDisplayed && snap.State != StateFetchingConnection) {
		return failedTask[*connect.Connection](invalidState(op, snap, "fetch the connection first"))
	}
	if snap.Status() == connect.StatusNeverEnabled {
		return failedTask[*connect.Connection](invalidState(op, snap, "start the authorization flow instead"))
	}
	if snap.Status() != want {
		return failedTask[*connect.Connection](invalidState(op, snap, ""))
	}

	task := newTask[*connect.Connection]()
	req := m.issueStatus(kindToggle)
	ctx, h, ticket := req.ctx, req.handle, req.ticket

	go func() {
		out := m.commit(func() outcome {
			if !m.registry.IsCurrent(h) || m.session != session {
				return outcome{}
			}
			m.toggling = true
			return outcome{applied: true, emit: true}
		})
		if !out.applied {
			m.registry.Cancel(h)
			task.finish(nil, ErrCancelled)
			return
		}

		started := time.Now()
		var (
			conn *connect.Connection
			err  error
		)
		if enable {
			conn, err = m.platform.ReenableConnection(ctx, m.connectionID)
		} else {
			conn, err = m.platform.DisableConnection(ctx, m.connectionID)
		}
		m.metrics.observe(string(kindToggle), started)

		out = m.commit(func() outcome {
			if !m.registry.Complete(h) || m.session != session {
				m.drop(kindToggle)
				return outcome{}
			}
			m.toggling = false
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return outcome{emit: true}
				}
				if isTokenRejected(err) {
					m.token = nil
				}
				return outcome{applied: true, emit: true, failure: failureEvent(op, err)}
			}
			if ticket < m.appliedTicket {
				m.drop(kindToggle)
				return outcome{stale: true, emit: true}
			}
			m.connection = conn
			m.appliedTicket = ticket
			return outcome{applied: true, emit: true}
		})
		switch {
		case out.stale:
			task.finish(conn, nil)
		case !out.applied:
			task.finish(nil, ErrCancelled)
		case out.failure != nil:
			task.finish(nil, err)
		default:
			task.finish(conn, nil)
		}
	}()
	return task
}

// StartAuthorization prepares the hosted authorization flow for the
// Connection and returns the URI to open. redirectTo receives the outcome.
// When logged in, the URI is a one-time login URL that signs the user in
// before continuing to the flow. AwaitingRedirect is set on success.
func (m *Machine) StartAuthorization(redirectTo string) *Task[*url.URL] {
	if m.isClosed.Load() {
		return failedTask[*url.URL](ErrClosed)
	}

	m.mu.Lock()
	session := m.session
	tokenPresent := m.token != nil
	m.mu.Unlock()

	email := ""
	if m.credentials != nil {
		email = m.credentials.UserID()
	}

	task := newTask[*url.URL]()
	ctx, h := m.registry.Track(m.ctx, kindLoginURL)

	go func() {
		mode := connect.FlowConnect
		if m.accounts != nil && !tokenPresent && email != "" {
			found, err := m.accounts.FindAccount(ctx, email)
			switch {
			case err != nil:
				logging.Debug("Lifecycle", "Account lookup failed, using default flow: %v", err)
			case found:
				mode = connect.FlowLogin
			default:
				mode = connect.FlowCreateAccount
			}
		}

		target, err := connect.BuildEmbedURI(connect.EmbedOptions{
			BaseURL:      m.embedBaseURL,
			ConnectionID: m.connectionID,
			Mode:         mode,
			RedirectURI:  redirectTo,
			AnonymousID:  m.anonymousID,
			InviteCode:   m.inviteCode,
			OAuthCode:    email,
			Email:        email,
		})
		if err == nil && session != nil {
			target, err = m.exchanger.GetLoginURI(ctx, session, target.String())
		}

		out := m.commit(func() outcome {
			if !m.registry.Complete(h) || m.session != session {
				m.drop(kindLoginURL)
				return outcome{}
			}
			if err != nil {
				if exchange.IsCancelled(err) {
					return outcome{}
				}
				return outcome{applied: true, failure: failureEvent(OpAuthorize, err)}
			}
			m.awaitingRedirect = true
			return outcome{applied: true, emit: true}
		})
		switch {
		case !out.applied:
			task.finish(nil, ErrCancelled)
		case out.failure != nil:
			task.finish(nil, err)
		default:
			task.finish(target, nil)
		}
	}()
	return task
}

// Logout cancels everything in flight and returns to StateUnauthenticated,
// clearing the session, the platform token and the Connection.
func (m *Machine) Logout() *Task[Snapshot] {
	if m.isClosed.Load() {
		return failedTask[Snapshot](ErrClosed)
	}

	m.registry.CancelAll()
	m.exchanger.CancelAll()

	task := newTask[Snapshot]()
	go func() {
		out := m.commit(func() outcome {
			m.session = nil
			m.token = nil
			m.connection = nil
			m.awaitingRedirect = false
			m.toggling = false
			m.appliedTicket = m.tickets.Load()
			m.platform.SetUserToken(nil)
			m.exchanger.ClearSession()
			m.setStateLocked(StateUnauthenticated)
			return outcome{applied: true, emit: true}
		})
		if !out.applied {
			task.finish(Snapshot{}, ErrCancelled)
			return
		}
		logging.Info("Lifecycle", "Logged out")
		task.finish(m.Snapshot(), nil)
	}()
	return task
}

// Close tears the machine down: every request is cancelled, late results
// are dropped and the listener is not invoked anymore. Close is idempotent.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		m.isClosed.Store(true)
		close(m.closedCh)

		m.stopRefresher()
		m.cancel()
		m.registry.CancelAll()
		m.exchanger.CancelAll()
		if m.ownQueue != nil {
			m.ownQueue.Close()
		}
		logging.Debug("Lifecycle", "Closed")
	})
}
