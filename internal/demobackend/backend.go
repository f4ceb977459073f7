package demobackend

import (
	"net/http"
	"net/url"

	"connectkit/pkg/logging"
)

// appUser resolves the bearer app token. It writes a 401 and returns false
// when the token is missing or unknown.
func (s *Server) appUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, ok := s.store.UserForAppToken(bearerToken(r))
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", "Invalid app token")
		return "", false
	}
	return username, true
}

func (s *Server) logIn(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeFailure(w, http.StatusBadRequest, "invalid_username", "username is required")
		return
	}
	token := s.store.LogIn(username)
	logging.Info("DemoBackend", "User %s logged in", username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) getPlatformToken(w http.ResponseWriter, r *http.Request) {
	username, ok := s.appUser(w, r)
	if !ok {
		return
	}
	var token *string
	if t := s.store.PlatformToken(username); t != "" {
		token = &t
	}
	writeJSON(w, http.StatusOK, map[string]*string{"token": token})
}

func (s *Server) getLoginURL(w http.ResponseWriter, r *http.Request) {
	username, ok := s.appUser(w, r)
	if !ok {
		return
	}
	redirectTo := r.URL.Query().Get("redirect_to")
	if !validReturnTo(redirectTo) {
		writeFailure(w, http.StatusBadRequest, "invalid_redirect", "redirect_to must be an absolute URL")
		return
	}

	code := s.store.IssueLoginCode(username)
	loginURL := s.publicURL(r) + "/web/login?" + url.Values{
		"code":        {code},
		"redirect_to": {redirectTo},
	}.Encode()
	writeJSON(w, http.StatusOK, map[string]string{"login_url": loginURL})
}

// webLogin redeems a one-time login code and continues to redirect_to as the
// signed-in user.
func (s *Server) webLogin(w http.ResponseWriter, r *http.Request) {
	username, ok := s.store.RedeemLoginCode(r.URL.Query().Get("code"))
	if !ok {
		http.Error(w, "invalid or used login code", http.StatusBadRequest)
		return
	}
	redirectTo := r.URL.Query().Get("redirect_to")
	if !validReturnTo(redirectTo) {
		http.Error(w, "invalid redirect_to", http.StatusBadRequest)
		return
	}
	target, err := withQuery(redirectTo, "username", username)
	if err != nil {
		http.Error(w, "invalid redirect_to", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// exchangeCode trades an OAuth code for a platform user token. In the demo
// the code is the username.
func (s *Server) exchangeCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "malformed form")
		return
	}
	code := r.PostForm.Get("code")
	token := s.store.PlatformToken(code)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": "error", "code": "unauthorized", "user_token": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "user_token", "code": nil, "user_token": token})
}
