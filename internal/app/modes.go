package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"connectkit/internal/cli"
	"connectkit/internal/demobackend"
	"connectkit/internal/exchange"
	"connectkit/internal/lifecycle"
	"connectkit/internal/platform"
	"connectkit/internal/prefs"
	"connectkit/internal/redirect"
	"connectkit/pkg/connect"
	"connectkit/pkg/logging"
)

// ErrNotStarted is returned by operations that need Start to have been called.
var ErrNotStarted = errors.New("application services not started")

func (a *Application) machine() (*lifecycle.Machine, error) {
	if a.services == nil {
		return nil, ErrNotStarted
	}
	return a.services.Machine, nil
}

// Login stores email, when given, and logs the stored user in. The returned
// snapshot is the settled state after the platform token and the Connection
// were resolved.
func (a *Application) Login(ctx context.Context, email string) (lifecycle.Snapshot, error) {
	m, err := a.machine()
	if err != nil {
		return lifecycle.Snapshot{}, err
	}
	store := a.services.Prefs
	if email != "" && email != store.Email() {
		if err := store.SetEmail(email); err != nil {
			return lifecycle.Snapshot{}, err
		}
	}
	email = store.Email()
	if email == "" {
		return lifecycle.Snapshot{}, &cli.AuthRequiredError{}
	}

	snap, err := m.Login(email).Wait(ctx)
	return snap, a.classify(err, email)
}

// Status logs the stored user in and returns the resulting snapshot.
func (a *Application) Status(ctx context.Context) (lifecycle.Snapshot, error) {
	return a.Login(ctx, "")
}

// SetEnabled logs the stored user in and enables or disables the Connection.
func (a *Application) SetEnabled(ctx context.Context, enable bool) (lifecycle.Snapshot, error) {
	snap, err := a.Status(ctx)
	if err != nil {
		return snap, err
	}
	m := a.services.Machine

	task := m.Disable()
	if enable {
		task = m.Enable()
	}
	if _, err := task.Wait(ctx); err != nil {
		return m.Snapshot(), a.classify(err, snap.UserID)
	}
	return m.Snapshot(), nil
}

// Logout drops the session and forgets the stored email.
func (a *Application) Logout(ctx context.Context) error {
	m, err := a.machine()
	if err != nil {
		return err
	}
	if _, err := m.Logout().Wait(ctx); err != nil {
		return err
	}
	return a.services.Prefs.ClearEmail()
}

// HandleRedirect applies a redirect URI, e.g. one copied from a browser.
// Without a session the stored user is logged in first.
func (a *Application) HandleRedirect(ctx context.Context, rawURI string) (lifecycle.Snapshot, error) {
	m, err := a.machine()
	if err != nil {
		return lifecycle.Snapshot{}, err
	}
	snap, err := m.HandleRedirectURI(rawURI).Wait(ctx)
	return snap, a.classify(err, a.services.Prefs.Email())
}

// ConnectOptions configures RunConnect.
type ConnectOptions struct {
	// Email is stored before logging in. The stored email is used when empty.
	Email string

	// NoBrowser only prints the authorization URL.
	NoBrowser bool

	// Out receives the authorization URL. Defaults to os.Stdout.
	Out io.Writer

	// Progress shows what the command is waiting on. Optional.
	Progress *cli.Progress

	// OnAuthorizationURL is called with the URL of the hosted flow after it
	// was printed, instead of opening a browser when NoBrowser is set.
	OnAuthorizationURL func(*url.URL)

	// Timeout bounds the wait for the redirect. Zero waits until interrupted.
	Timeout time.Duration
}

// RunConnect runs the interactive connect flow:
//
//  1. log the user in and resolve the current Connection status
//  2. open the hosted authorization flow with a loopback redirect receiver
//  3. apply redirects until the flow completes or fails
//
// While waiting, an edit of the stored email (e.g. by "connectkit prefs")
// logs the new user in. SIGINT and SIGTERM abort the wait.
func (a *Application) RunConnect(ctx context.Context, opts ConnectOptions) (lifecycle.Snapshot, error) {
	m, err := a.machine()
	if err != nil {
		return lifecycle.Snapshot{}, err
	}
	ck := a.config.ConnectKit
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	progress := opts.Progress
	if progress == nil {
		progress = cli.NewProgress(io.Discard, true)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := cli.CheckBackendRunning(ctx, ck.Backend.URL); err != nil {
		return lifecycle.Snapshot{}, err
	}

	receiver := redirect.NewReceiver(ck.Redirect.Port, ck.Redirect.Path)
	redirectURI, err := receiver.Start(ctx)
	if err != nil {
		return lifecycle.Snapshot{}, err
	}
	defer receiver.Stop()

	progress.Start("Logging in")
	snap, err := a.Login(ctx, opts.Email)
	if err != nil {
		progress.Fail("Login failed")
		return snap, err
	}
	if snap.Status() == connect.StatusEnabled {
		progress.Stop()
		logging.Info("Connect", "Connection %s is already enabled", ck.Connection.ID)
		return snap, nil
	}

	progress.Update("Preparing the authorization flow")
	target, err := m.StartAuthorization(redirectURI).Wait(ctx)
	progress.Stop()
	if err != nil {
		return m.Snapshot(), a.classify(err, snap.UserID)
	}

	fmt.Fprintf(out, "Open the following URL to connect %s:\n  %s\n", ck.Connection.ID, target)
	if !opts.NoBrowser {
		if err := redirect.OpenBrowser(target.String()); err != nil {
			logging.Warn("Connect", "Could not open a browser: %v", err)
		}
	}
	if opts.OnAuthorizationURL != nil {
		opts.OnAuthorizationURL(target)
	}

	if ck.Lifecycle.RefreshInterval > 0 {
		stopRefresh := m.StartRefresher(ck.Lifecycle.RefreshInterval)
		defer stopRefresh()
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(waitCtx)

	g.Go(func() error {
		err := a.services.Prefs.Watch(gctx, func(old, updated prefs.Preferences) {
			if updated.Email == old.Email || updated.Email == "" {
				return
			}
			logging.Info("Connect", "Stored email changed to %s, logging in again", updated.Email)
			m.Login(updated.Email)
		})
		if err != nil {
			logging.Warn("Connect", "Not watching preferences: %v", err)
		}
		return nil
	})

	var final lifecycle.Snapshot
	g.Go(func() error {
		defer cancel()
		progress.Start("Waiting for the web authorization flow")
		defer progress.Stop()
		for {
			result, err := receiver.Wait(gctx)
			if err != nil {
				return err
			}
			logging.Debug("Connect", "Received redirect %s", result)

			snap, err := m.HandleRedirect(result).Wait(gctx)
			final = snap
			switch result.NextStep {
			case connect.NextStepComplete:
				return a.classify(err, snap.UserID)
			case connect.NextStepError:
				return fmt.Errorf("authorization failed: %s", result.ErrorType)
			default:
				// The user can reopen the flow; keep listening.
				progress.Update("Waiting for the web authorization flow to be reopened")
			}
		}
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return m.Snapshot(), fmt.Errorf("timed out waiting for the authorization redirect")
		}
		if errors.Is(err, context.Canceled) {
			return m.Snapshot(), fmt.Errorf("interrupted while waiting for the authorization redirect")
		}
		return m.Snapshot(), err
	}
	return final, nil
}

// Serve runs the demo backend until ctx is done or the process is signalled.
func (a *Application) Serve(ctx context.Context) error {
	ck := a.config.ConnectKit

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := demobackend.New(demobackend.Config{
		ConnectionID:   ck.Connection.ID,
		ConnectionName: ck.Server.ConnectionName,
		ServiceID:      ck.Connection.ServiceID,
		RateLimit: demobackend.RateLimiterConfig{
			Rate:  rate.Limit(ck.Server.RateLimit),
			Burst: ck.Server.RateLimitBurst,
		},
	}, prometheus.NewRegistry())
	defer srv.Close()

	logging.Info("Serve", "Demo backend for connection %s; point backend.url, platform.url and platform.embedURL at http://%s", ck.Connection.ID, ck.Server.Listen)
	return srv.Serve(ctx, ck.Server.Listen)
}

// classify maps lifecycle failures to the typed CLI errors behind the exit codes.
func (a *Application) classify(err error, email string) error {
	if err == nil {
		return nil
	}

	var exErr *exchange.Error
	if errors.As(err, &exErr) {
		switch {
		case exErr.Kind == exchange.ErrorKindTransport:
			if cause := errors.Unwrap(exErr); cause != nil {
				return cli.ClassifyConnectionError(cause, a.config.ConnectKit.Backend.URL)
			}
		case exErr.Op == string(exchange.OpLogin):
			return &cli.AuthFailedError{Email: email, Reason: err}
		}
		return err
	}

	var platTransport *platform.TransportError
	if errors.As(err, &platTransport) {
		if cause := errors.Unwrap(platTransport); cause != nil {
			return cli.ClassifyConnectionError(cause, a.config.ConnectKit.Platform.URL)
		}
		return err
	}

	var platErr *platform.ErrorResponse
	if errors.As(err, &platErr) && platErr.IsUnauthorized() {
		return &cli.AuthExpiredError{Email: email}
	}
	if errors.Is(err, lifecycle.ErrNotLoggedIn) {
		return &cli.AuthRequiredError{}
	}
	return err
}
