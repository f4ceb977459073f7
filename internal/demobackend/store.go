// Package demobackend serves an in-memory app backend and a fake platform
// API for local demos and tests. Nothing is persisted.
package demobackend

import (
	"sync"

	"github.com/google/uuid"

	"connectkit/pkg/connect"
)

type account struct {
	username      string
	appToken      string
	platformToken string
	status        connect.ConnectionStatus
}

// Store keeps users, their tokens and their Connection status.
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]*account
	byAppToken     map[string]*account
	byPlatform     map[string]*account
	loginCodes     map[string]string
	platformLogins map[string]bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:       make(map[string]*account),
		byAppToken:     make(map[string]*account),
		byPlatform:     make(map[string]*account),
		loginCodes:     make(map[string]string),
		platformLogins: make(map[string]bool),
	}
}

// LogIn returns the app token of username, creating the user on first login.
// Each login issues a fresh app token.
func (s *Store) LogIn(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		acc = &account{username: username, status: connect.StatusNeverEnabled}
		s.accounts[username] = acc
	}
	if acc.appToken != "" {
		delete(s.byAppToken, acc.appToken)
	}
	acc.appToken = uuid.NewString()
	s.byAppToken[acc.appToken] = acc
	return acc.appToken
}

// UserForAppToken resolves an app token.
func (s *Store) UserForAppToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byAppToken[token]
	if !ok {
		return "", false
	}
	return acc.username, true
}

// PlatformToken returns the user's platform token, "" if the user never
// authorized the platform.
func (s *Store) PlatformToken(username string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc, ok := s.accounts[username]; ok {
		return acc.platformToken
	}
	return ""
}

// UserForPlatformToken resolves a platform token.
func (s *Store) UserForPlatformToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byPlatform[token]
	if !ok {
		return "", false
	}
	return acc.username, true
}

// Authorize grants the platform to username and enables the Connection.
// Unknown users are created when create is set.
func (s *Store) Authorize(username string, create bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		if !create {
			return "", false
		}
		acc = &account{username: username}
		s.accounts[username] = acc
	}
	if acc.platformToken == "" {
		acc.platformToken = uuid.NewString()
		s.byPlatform[acc.platformToken] = acc
	}
	acc.status = connect.StatusEnabled
	s.platformLogins[username] = true
	return acc.platformToken, true
}

// Status returns the Connection status of username.
func (s *Store) Status(username string) connect.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[username]
	if !ok {
		return connect.StatusNeverEnabled
	}
	return acc.status
}

// SetEnabled toggles an authorized Connection. It fails for a Connection
// that was never enabled.
func (s *Store) SetEnabled(username string, enabled bool) (connect.ConnectionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok || acc.status == connect.StatusNeverEnabled {
		return connect.StatusNeverEnabled, false
	}
	if enabled {
		acc.status = connect.StatusEnabled
	} else {
		acc.status = connect.StatusDisabled
	}
	return acc.status, true
}

// HasPlatformAccount reports whether username ever signed in to the platform.
func (s *Store) HasPlatformAccount(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.platformLogins[username]
}

// IssueLoginCode returns a one-time code that signs username in to the web
// surface.
func (s *Store) IssueLoginCode(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := uuid.NewString()
	s.loginCodes[code] = username
	return code
}

// RedeemLoginCode consumes a login code.
func (s *Store) RedeemLoginCode(code string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.loginCodes[code]
	delete(s.loginCodes, code)
	return username, ok
}

// Users returns the number of known users.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
