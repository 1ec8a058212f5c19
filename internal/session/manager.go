package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/streamgate/internal/events"
	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/metrics"
	"github.com/smazurov/streamgate/internal/ports"
	"github.com/smazurov/streamgate/internal/process"
)

// pendingStart marks an in-flight spawn for a key. Every concurrent
// Acquire for the same key waits on the same pending operation instead
// of triggering a second spawn.
type pendingStart struct {
	done    chan struct{}
	session *Session
	err     error
}

// Manager is the session registry. All registry mutations go through its
// mutex; spawn completion is asynchronous and resolved through pending
// markers.
type Manager struct {
	cfg      Config
	launcher Launcher
	alloc    *ports.Allocator
	bus      *events.Bus
	presence *Presence
	logger   *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	sessions map[string]*Session
	pending  map[string]*pendingStart

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewManager creates a session registry over the given port pool.
func NewManager(cfg Config, launcher Launcher, alloc *ports.Allocator, bus *events.Bus) *Manager {
	m := &Manager{
		cfg:      cfg.withDefaults(),
		launcher: launcher,
		alloc:    alloc,
		bus:      bus,
		presence: NewPresence(),
		logger:   logging.GetLogger("session"),
		sessions: make(map[string]*Session),
		pending:  make(map[string]*pendingStart),
		stopCh:   make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Presence returns the client presence tracker for this registry.
func (m *Manager) Presence() *Presence {
	return m.presence
}

// Acquire returns the live session for key, joining an in-flight start
// if one exists, or spawning a new backend process otherwise. Starting
// an already-running key never double-spawns. Callers must be prepared
// to wait the full startup timeout before an error surfaces; there is no
// mid-flight cancellation of a pending start.
func (m *Manager) Acquire(ctx context.Context, key, quality string) (*Session, error) {
	m.mu.Lock()
	for {
		if s, ok := m.sessions[key]; ok {
			m.mu.Unlock()
			return s, nil
		}
		if p, ok := m.pending[key]; ok {
			m.mu.Unlock()
			select {
			case <-p.done:
				return p.session, p.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		// Admission is decided here, against live sessions plus in-flight
		// starts, so that concurrent acquires for distinct keys cannot
		// each conclude the pool has room.
		if len(m.sessions)+len(m.pending) < m.alloc.Capacity() {
			break
		}
		if victim := m.pickVictim(); victim != nil {
			delete(m.sessions, victim.Key)
			m.mu.Unlock()
			m.evict(victim)
			m.mu.Lock()
			continue
		}
		// Every slot is held by an in-flight start; nothing is evictable
		// until one of them resolves.
		m.cond.Wait()
	}
	p := &pendingStart{done: make(chan struct{})}
	m.pending[key] = p
	m.mu.Unlock()

	session, err := m.startSession(ctx, key, quality)

	m.mu.Lock()
	delete(m.pending, key)
	if session != nil {
		m.sessions[key] = session
	}
	m.cond.Broadcast()
	m.mu.Unlock()

	p.session, p.err = session, err
	close(p.done)

	if err != nil {
		m.bus.Publish(events.StreamErrorEvent{
			Key:       key,
			Message:   err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return nil, err
	}

	m.wg.Add(1)
	go m.monitor(session)

	metrics.SessionsStarted.Inc()
	metrics.SessionsActive.Set(float64(m.activeCount()))
	m.bus.Publish(events.StreamStartedEvent{
		Key:       key,
		URL:       session.URL,
		Port:      session.Port,
		Quality:   quality,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	return session, nil
}

// startSession spawns with port-busy retry: a bind failure is a
// recoverable start failure, retried with the next cursor port, capped
// at the pool width.
func (m *Manager) startSession(ctx context.Context, key, quality string) (*Session, error) {
	var lastErr error
	for attempt := 0; attempt < m.alloc.Capacity(); attempt++ {
		port := m.alloc.Next()

		handle, err := m.launcher.Launch(ctx, LaunchSpec{Key: key, Quality: quality, Port: port})
		if err != nil {
			lastErr = err
			if process.IsPortBusy(err) {
				m.logger.Warn("Port busy, retrying with next port", "key", key, "port", port)
				metrics.StartFailures.WithLabelValues("port_busy").Inc()
				continue
			}
			metrics.StartFailures.WithLabelValues(failureReason(err)).Inc()
			return nil, err
		}

		return &Session{
			Key:       key,
			Quality:   quality,
			Port:      port,
			URL:       fmt.Sprintf("http://%s:%d/", m.cfg.PublicHost, port),
			StartedAt: time.Now(),
			handle:    handle,
		}, nil
	}

	return nil, fmt.Errorf("no free port in pool: %w", lastErr)
}

// pickVictim selects the session to evict when the pool is full: the
// oldest session with no recent presence activity, or the globally
// oldest when every session is active. Returns nil when the registry
// holds no completed sessions. Caller must hold m.mu.
func (m *Manager) pickVictim() *Session {
	now := time.Now()
	var victim *Session
	for _, s := range m.sessions {
		if m.presence.idleFor(s.Key, now) < m.cfg.EvictIdleWindow {
			continue
		}
		if victim == nil || s.StartedAt.Before(victim.StartedAt) {
			victim = s
		}
	}
	if victim == nil {
		for _, s := range m.sessions {
			if victim == nil || s.StartedAt.Before(victim.StartedAt) {
				victim = s
			}
		}
	}
	return victim
}

// evict stops an already-deregistered victim. New requests are always
// admitted, never refused, so eviction is the only back-pressure.
func (m *Manager) evict(victim *Session) {
	m.logger.Info("Evicting session to admit new request", "key", victim.Key, "age", time.Since(victim.StartedAt))
	metrics.SessionsEvicted.Inc()
	victim.handle.Stop()

	// Give the OS a moment to release the port before the new spawn.
	time.Sleep(m.cfg.EvictionDelay)
}

// monitor waits for the session's process to exit and removes it from
// the registry. Every exit path (voluntary, evicted, reaped, shutdown)
// converges here, so stream:ended is emitted exactly once per session.
func (m *Manager) monitor(s *Session) {
	defer m.wg.Done()

	<-s.handle.Done()
	exitCode := s.handle.ExitCode()

	m.mu.Lock()
	if cur, ok := m.sessions[s.Key]; ok && cur == s {
		delete(m.sessions, s.Key)
	}
	m.cond.Broadcast()
	m.mu.Unlock()

	m.logger.Info("Session ended", "key", s.Key, "exit_code", exitCode)
	metrics.SessionsActive.Set(float64(m.activeCount()))
	m.bus.Publish(events.StreamEndedEvent{
		Key:       s.Key,
		ExitCode:  exitCode,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Stop requests termination of the session for key. Fire-and-forget: the
// grace-then-force escalation runs on the handle's own timer, and the
// registry entry is removed by the monitor when the process exits.
// Stopping an unknown or already-stopped key is a no-op.
func (m *Manager) Stop(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.handle.Stop()
}

// Get returns the live session for key.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// ListActive returns a snapshot of all live sessions.
func (m *Manager) ListActive() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every live session and waits for all monitor goroutines
// to drain, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.stopCh)

	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	m.logger.Info("Stopping all sessions", "count", len(live))
	for _, s := range live {
		s.handle.Stop()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session drain timeout: %w", ctx.Err())
	}
}

// failureReason maps a start error to a metrics label.
func failureReason(err error) string {
	switch {
	case process.IsCode(err, process.ErrCodeStartupTimeout):
		return "timeout"
	case process.IsCode(err, process.ErrCodeSourceUnavailable):
		return "source_unavailable"
	case process.IsCode(err, process.ErrCodeProcessExited):
		return "process_exited"
	case process.IsCode(err, process.ErrCodePortBusy):
		return "port_busy"
	default:
		return "other"
	}
}
