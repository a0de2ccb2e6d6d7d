package authsdk

import (
	"context"

	"github.com/jonboulle/clockwork"
)

// refreshTimer is the recurring refresh worker. At most one is armed per
// Manager.
type refreshTimer struct {
	ticker clockwork.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
}

// armTimerLocked cancels any running timer and starts a new one. Callers
// hold m.mu.
func (m *Manager) armTimerLocked() {
	m.stopTimerLocked()

	t := &refreshTimer{
		ticker: m.clock.NewTicker(m.interval),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	m.timer = t
	go m.runTimer(t)
}

// stopTimerLocked cancels the armed timer without waiting for its goroutine,
// which may itself be the caller via a failed refresh.
func (m *Manager) stopTimerLocked() {
	if m.timer == nil {
		return
	}
	m.timer.ticker.Stop()
	close(m.timer.stopCh)
	m.timer = nil
}

func (m *Manager) runTimer(t *refreshTimer) {
	defer close(t.doneCh)

	for {
		select {
		case <-t.stopCh:
			return
		case <-t.ticker.Chan():
			// A failed refresh tears the session down, which closes stopCh.
			if _, err := m.refresh(context.Background(), TriggerTimer); err != nil {
				return
			}
		}
	}
}

// timerArmed reports whether a refresh timer is running.
func (m *Manager) timerArmed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timer != nil
}
