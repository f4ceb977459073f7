// Package redirect receives the outcome of the hosted web authorization flow.
//
// The hosted flow finishes by redirecting the browser to the URI passed as
// sdk_return_to. Receiver serves that URI on a loopback port, parses every
// hit with connect.ParseRedirectQuery and delivers the results in order.
// Unlike a one-shot OAuth callback, the receiver keeps accepting redirects
// until it is stopped, since users can reopen the flow mid-flight.
package redirect

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"connectkit/pkg/connect"
	"connectkit/pkg/logging"
)

// DefaultPort is the default loopback port for the redirect receiver.
const DefaultPort = 8085

// DefaultPath is the default redirect path.
const DefaultPath = "/connect_callback"

// resultBuffer is how many unconsumed redirects are kept before new ones are dropped.
const resultBuffer = 8

//go:embed templates/redirect_complete.html
var completeHTML string

//go:embed templates/redirect_error.html
var errorHTML string

var (
	completeTmpl = template.Must(template.New("complete").Parse(completeHTML))
	errorTmpl    = template.Must(template.New("error").Parse(errorHTML))
)

// Receiver is a local HTTP server for redirect URIs.
type Receiver struct {
	port int
	path string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	uri      string
	stopped  bool

	results chan connect.RedirectResult
	errorCh chan error
}

// NewReceiver creates a receiver on port and path. A negative port picks a
// random free port; 0 uses DefaultPort.
func NewReceiver(port int, path string) *Receiver {
	if port == 0 {
		port = DefaultPort
	}
	if port < 0 {
		port = 0
	}
	if path == "" {
		path = DefaultPath
	}
	return &Receiver{
		port:    port,
		path:    path,
		results: make(chan connect.RedirectResult, resultBuffer),
		errorCh: make(chan error, 1),
	}
}

// Start begins listening and returns the redirect URI to hand to the hosted
// flow. The receiver stops when ctx is cancelled.
func (r *Receiver) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", r.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start redirect receiver on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(r.path, r.handleRedirect)

	r.mu.Lock()
	r.listener = listener
	r.port = listener.Addr().(*net.TCPAddr).Port
	r.uri = fmt.Sprintf("http://127.0.0.1:%d%s", r.port, r.path)
	r.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := r.server
	uri := r.uri
	r.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case r.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	logging.Debug("Redirect", "Listening for redirects on %s", uri)
	return uri, nil
}

// Results delivers parsed redirects in arrival order.
func (r *Receiver) Results() <-chan connect.RedirectResult {
	return r.results
}

// Wait blocks until the next redirect arrives, the server fails or ctx is done.
func (r *Receiver) Wait(ctx context.Context) (connect.RedirectResult, error) {
	select {
	case result := <-r.results:
		return result, nil
	case err := <-r.errorCh:
		return connect.RedirectResult{}, err
	case <-ctx.Done():
		return connect.RedirectResult{}, ctx.Err()
	}
}

func (r *Receiver) handleRedirect(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	result := connect.ParseRedirectQuery(req.URL.Query())
	logging.Info("Redirect", "Received redirect: %s", result)

	tmpl := completeTmpl
	data := map[string]string{}
	switch result.NextStep {
	case connect.NextStepError:
		tmpl = errorTmpl
		data["ErrorType"] = result.ErrorType
	case connect.NextStepComplete:
		data["Title"] = "Connection complete"
		data["Message"] = "Your account is now connected."
	case connect.NextStepServiceConnection:
		data["Title"] = "Almost there"
		data["Message"] = "Connect " + result.ServiceID + " to finish setting up."
	default:
		data["Title"] = "Redirect received"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	select {
	case r.results <- result:
	default:
		logging.Warn("Redirect", "Dropping redirect %s, no consumer", result)
	}
}

// Stop gracefully shuts down the receiver. It is safe to call more than once.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	server := r.server
	listener := r.listener
	r.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

// URI returns the redirect URI once started.
func (r *Receiver) URI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uri
}

// Port returns the port the receiver is listening on.
func (r *Receiver) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port
}
