// Package prefs persists the small amount of local user state connectkit
// keeps between runs: the user's email (used as the app login id), a dark
// mode flag for the CLI output, and the anonymous installation id sent to the
// platform.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"connectkit/pkg/logging"
)

// FileName is the preferences file inside the storage directory.
const FileName = "preferences.json"

// Preferences is the persisted state.
type Preferences struct {
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	DarkMode    bool   `json:"dark_mode" yaml:"dark_mode"`
	AnonymousID string `json:"anonymous_id,omitempty" yaml:"anonymous_id,omitempty"`
}

// Store is a file-backed preferences store.
//
// The file is written with 0600 permissions inside a 0700 directory.
type Store struct {
	mu    sync.RWMutex
	path  string
	prefs Preferences
}

// Open loads preferences from dir, creating the directory if needed.
// A missing file yields empty preferences.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &Store{path: filepath.Join(dir, FileName)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the preferences file path.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the preferences file. The read and the swap happen under
// the store lock, so a concurrent update is never replaced by older content.
func (s *Store) Reload() error {
	_, _, err := s.reload()
	return err
}

// reload re-reads the file and returns the preferences before and after.
func (s *Store) reload() (old, updated Preferences, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old = s.prefs
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.prefs = Preferences{}
			return old, s.prefs, nil
		}
		return old, old, fmt.Errorf("failed to read preferences: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return old, old, fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
	}
	s.prefs = p
	return old, p, nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Email returns the stored email, or "".
func (s *Store) Email() string {
	return s.Get().Email
}

// UserID returns the identifier used to log into the app backend.
// It satisfies the credential provider used by the lifecycle machine.
func (s *Store) UserID() string {
	return s.Email()
}

// SetEmail stores the user's email.
func (s *Store) SetEmail(email string) error {
	return s.update(func(p *Preferences) { p.Email = email })
}

// ClearEmail removes the stored email, e.g. on logout.
func (s *Store) ClearEmail() error {
	return s.SetEmail("")
}

// DarkMode returns the dark mode flag.
func (s *Store) DarkMode() bool {
	return s.Get().DarkMode
}

// SetDarkMode stores the dark mode flag.
func (s *Store) SetDarkMode(enabled bool) error {
	return s.update(func(p *Preferences) { p.DarkMode = enabled })
}

// AnonymousID returns the installation id, generating and persisting one on
// first use.
func (s *Store) AnonymousID() (string, error) {
	if id := s.Get().AnonymousID; id != "" {
		return id, nil
	}
	id := uuid.NewString()
	var stored string
	err := s.update(func(p *Preferences) {
		if p.AnonymousID == "" {
			p.AnonymousID = id
		}
		stored = p.AnonymousID
	})
	return stored, err
}

func (s *Store) update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	fn(&next)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}

	s.prefs = next
	logging.Debug("Prefs", "Saved preferences to %s", s.path)
	return nil
}
