package demobackend

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"connectkit/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var authorizeTemplate = template.Must(template.ParseFS(templateFS, "templates/authorize.html"))

const shutdownTimeout = 5 * time.Second

// Config configures the demo backend.
type Config struct {
	ConnectionID   string
	ConnectionName string
	ServiceID      string

	// PublicURL is the externally visible base URL used in login URLs.
	// When empty it is derived from the request.
	PublicURL string

	RateLimit RateLimiterConfig
}

// Server is the demo app backend plus fake platform API.
type Server struct {
	cfg     Config
	store   *Store
	limiter *RateLimiter
	metrics *Metrics
	router  chi.Router
}

// New creates a server. Metrics are registered with reg and served from
// /metrics.
func New(cfg Config, reg *prometheus.Registry) *Server {
	if cfg.RateLimit.Rate == 0 {
		cfg.RateLimit = DefaultRateLimiterConfig()
	}
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = cfg.ConnectionID
	}

	s := &Server{
		cfg:     cfg,
		store:   NewStore(),
		limiter: NewRateLimiter(cfg.RateLimit),
		metrics: NewMetrics(reg),
	}
	s.router = s.routes(reg)
	return s
}

// Store exposes the server state.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) routes(gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", MetricsHandler(gatherer))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Route("/mobile_api", func(r chi.Router) {
			r.Post("/log_in", s.logIn)
			r.Post("/get_ifttt_token", s.getPlatformToken)
			r.Post("/get_login_url", s.getLoginURL)
		})
		r.Post("/api/user_token", s.exchangeCode)

		r.Route("/v2", func(r chi.Router) {
			r.Get("/me", s.me)
			r.Get("/account/find", s.findAccount)
			r.Route("/connections/{connectionID}", func(r chi.Router) {
				r.Get("/", s.showConnection)
				r.Post("/disable", s.toggleConnection(false))
				r.Post("/reenable", s.toggleConnection(true))
			})
		})
	})

	r.Get("/web/login", s.webLogin)
	r.Get("/access/api/{connectionID}", s.showAuthorize)
	r.Post("/access/api/{connectionID}", s.authorize)

	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("DemoBackend", "Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Debug("DemoBackend", "%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("DemoBackend", "Failed to write response: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"type":    "error",
		"code":    code,
		"message": message,
	})
}

func (s *Server) publicURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// withQuery returns raw with the given key/value pairs set.
func withQuery(raw string, kv ...string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// validReturnTo accepts absolute http(s) URLs only.
func validReturnTo(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
