package session

import (
	"time"

	"github.com/smazurov/streamgate/internal/metrics"
)

// StartReaper launches the idle reaper loop. Every ReapInterval it stops
// sessions older than MinAge whose presence record is absent or whose
// last activity exceeds IdleTimeout. A watched but quiet session can be
// reaped if the consumer's keep-alive cadence is slower than the
// threshold.
func (m *Manager) StartReaper() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.cfg.ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				reaped := m.reapOnce(time.Now())
				if reaped > 0 {
					m.logger.Info("Reaped idle sessions", "count", reaped)
				}
			}
		}
	}()
}

// reapOnce performs one sweep and returns the number of sessions stopped.
func (m *Manager) reapOnce(now time.Time) int {
	m.mu.Lock()
	var victims []*Session
	for _, s := range m.sessions {
		if now.Sub(s.StartedAt) < m.cfg.MinAge {
			continue
		}
		if m.presence.idleFor(s.Key, now) < m.cfg.IdleTimeout {
			continue
		}
		victims = append(victims, s)
	}
	m.mu.Unlock()

	for _, s := range victims {
		m.logger.Info("Stopping idle session", "key", s.Key,
			"age", now.Sub(s.StartedAt), "idle", m.presence.idleFor(s.Key, now))
		metrics.SessionsReaped.Inc()
		s.handle.Stop()
	}
	return len(victims)
}
