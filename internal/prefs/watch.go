package prefs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"connectkit/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last file change
// before reloading.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watch reloads the store whenever the preferences file changes on disk and
// calls onChange with the old and new values. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(old, updated Preferences)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so atomic renames are seen.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Debug("Prefs", "Watching %s for changes", s.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		old, updated, err := s.reload()
		if err != nil {
			logging.Warn("Prefs", "Failed to reload preferences: %v", err)
			return
		}
		if old != updated && onChange != nil {
			onChange(old, updated)
		}
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != FileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(DefaultDebounceInterval, reload)
			timerMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Prefs", err, "fsnotify error")
		}
	}
}
