package lifecycle

import (
	"context"
	"errors"
	"time"

	"connectkit/pkg/logging"
)

// StartRefresher re-fetches the Connection every interval while it is
// displayed and no hosted flow is open, so that changes made elsewhere show
// up. A running refresher is replaced. The returned function stops it.
func (m *Machine) StartRefresher(interval time.Duration) (stop func()) {
	if interval <= 0 || m.isClosed.Load() {
		return func() {}
	}

	ctx, cancel := context.WithCancel(m.ctx)

	m.refreshMu.Lock()
	if m.stopRefresh != nil {
		m.stopRefresh()
	}
	m.stopRefresh = cancel
	m.refreshMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := m.Snapshot()
				if snap.State != StateDisplayed || snap.AwaitingRedirect || snap.Toggling {
					continue
				}
				if _, err := m.FetchConnection().Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logging.Debug("Lifecycle", "Periodic refresh failed: %v", err)
				}
			}
		}
	}()

	logging.Debug("Lifecycle", "Refreshing connection every %s", interval)
	return cancel
}

func (m *Machine) stopRefresher() {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	if m.stopRefresh != nil {
		m.stopRefresh()
		m.stopRefresh = nil
	}
}
