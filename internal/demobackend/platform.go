package demobackend

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"connectkit/internal/platform"
	"connectkit/pkg/connect"
	"connectkit/pkg/logging"
)

// platformUser resolves the optional bearer platform token. An unknown
// token is rejected with 401.
func (s *Server) platformUser(w http.ResponseWriter, r *http.Request) (username string, authenticated, ok bool) {
	token := bearerToken(r)
	if token == "" {
		return "", false, true
	}
	username, found := s.store.UserForPlatformToken(token)
	if !found {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", "Invalid user token")
		return "", false, false
	}
	return username, true, true
}

func (s *Server) connection(status connect.ConnectionStatus) connect.Connection {
	return connect.Connection{
		ID:     s.cfg.ConnectionID,
		Name:   s.cfg.ConnectionName,
		Status: status,
		Services: []connect.Service{{
			ID:        s.cfg.ServiceID,
			Name:      s.cfg.ConnectionName,
			IsPrimary: true,
		}},
	}
}

func (s *Server) knownConnection(w http.ResponseWriter, r *http.Request) bool {
	if chi.URLParam(r, "connectionID") != s.cfg.ConnectionID {
		writeFailure(w, http.StatusNotFound, "not_found", "Connection not found")
		return false
	}
	return true
}

func (s *Server) showConnection(w http.ResponseWriter, r *http.Request) {
	if !s.knownConnection(w, r) {
		return
	}
	username, authenticated, ok := s.platformUser(w, r)
	if !ok {
		return
	}
	logging.Debug("DemoBackend", "Connection requested by sdk %s/%s",
		r.Header.Get(platform.HeaderSDKPlatform), r.Header.Get(platform.HeaderSDKVersion))

	status := connect.StatusNeverEnabled
	if authenticated {
		status = s.store.Status(username)
	}
	writeJSON(w, http.StatusOK, s.connection(status))
}

func (s *Server) toggleConnection(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.knownConnection(w, r) {
			return
		}
		username, authenticated, ok := s.platformUser(w, r)
		if !ok {
			return
		}
		if !authenticated {
			writeFailure(w, http.StatusUnauthorized, "unauthorized", "A user token is required")
			return
		}
		status, ok := s.store.SetEnabled(username, enable)
		if !ok {
			writeFailure(w, http.StatusUnprocessableEntity, "not_enabled", "Connection was never enabled")
			return
		}
		logging.Info("DemoBackend", "Connection %s is now %s for %s", s.cfg.ConnectionID, status, username)
		writeJSON(w, http.StatusOK, s.connection(status))
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	username, authenticated, ok := s.platformUser(w, r)
	if !ok {
		return
	}
	user := connect.User{AuthenticationLevel: connect.AuthenticationNone}
	if authenticated {
		user = connect.User{
			AuthenticationLevel: connect.AuthenticationUser,
			ServiceID:           s.cfg.ServiceID,
			UserLogin:           username,
		}
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) findAccount(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" || !s.store.HasPlatformAccount(email) {
		writeFailure(w, http.StatusNotFound, "not_found", "No account for this email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

type authorizePage struct {
	ConnectionName string
	User           string
	ReturnTo       string
	CreateAccount  bool
}

// showAuthorize renders the hosted authorization flow.
func (s *Server) showAuthorize(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "connectionID") != s.cfg.ConnectionID {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	returnTo := q.Get("sdk_return_to")
	if !validReturnTo(returnTo) {
		http.Error(w, "sdk_return_to must be an absolute URL", http.StatusBadRequest)
		return
	}

	user := q.Get("username")
	if user == "" {
		user = q.Get("email")
	}
	if user == "" {
		user = q.Get("code")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	page := authorizePage{
		ConnectionName: s.cfg.ConnectionName,
		User:           user,
		ReturnTo:       returnTo,
		CreateAccount:  q.Get("sdk_create_account") == "true",
	}
	if err := authorizeTemplate.Execute(w, page); err != nil {
		logging.Error("DemoBackend", err, "Failed to render authorization page")
	}
}

// authorize completes the hosted flow and redirects back to the app.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "connectionID") != s.cfg.ConnectionID {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	returnTo := r.PostForm.Get("return_to")
	if !validReturnTo(returnTo) {
		http.Error(w, "return_to must be an absolute URL", http.StatusBadRequest)
		return
	}

	params := []string{connect.ParamNextStep, connect.NextStepComplete.String()}
	user := r.PostForm.Get("user")
	switch {
	case r.PostForm.Get("action") == "cancel":
		params = []string{connect.ParamNextStep, connect.NextStepError.String(), connect.ParamErrorType, "user_cancelled"}
	case user == "":
		params = []string{connect.ParamNextStep, connect.NextStepError.String(), connect.ParamErrorType, connect.ErrorTypeAccountCreation}
	default:
		if _, ok := s.store.Authorize(user, r.PostForm.Get("create") == "true"); !ok {
			params = []string{connect.ParamNextStep, connect.NextStepError.String(), connect.ParamErrorType, connect.ErrorTypeAccountCreation}
		} else {
			s.metrics.recordGrant()
			logging.Info("DemoBackend", "User %s authorized connection %s", user, s.cfg.ConnectionID)
		}
	}

	target, err := withQuery(returnTo, params...)
	if err != nil {
		http.Error(w, "invalid return_to", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
