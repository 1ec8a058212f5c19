// Package session owns the registry of live viewing sessions: one
// supervised subprocess plus its locally reachable endpoint per logical
// stream key. The registry enforces at-most-one session per key
// (including for concurrent start requests), bounds the live count to
// the port-pool width via admission eviction, and reaps idle sessions.
package session

import (
	"context"
	"time"
)

// Session is one supervised external process plus its reachable endpoint.
type Session struct {
	Key       string
	Quality   string
	Port      int
	URL       string
	StartedAt time.Time

	handle Handle
}

// Handle is the narrow view of a supervised process the registry needs.
// *process.Handle satisfies it; tests substitute fakes.
type Handle interface {
	Done() <-chan struct{}
	ExitCode() int
	Stop()
}

// LaunchSpec describes one spawn attempt for a viewing session.
type LaunchSpec struct {
	Key     string
	Quality string
	Port    int
}

// Launcher spawns a backend process and blocks until its startup
// resolves. Port-conflict failures must surface as process.IsPortBusy
// errors so the registry retries with the next pool port.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Handle, error)
}

// Config carries the registry's lifecycle tunables. The idle thresholds
// are deliberately configuration, not constants: idle detection conflates
// "no recent redirect issued" with "no one watching", and deployments
// with slow client keep-alive cadences need room to widen them.
type Config struct {
	// PublicHost is the host clients use to reach session endpoints.
	PublicHost string

	// IdleTimeout is how long without presence activity before a session
	// becomes reapable. Default 2m.
	IdleTimeout time.Duration

	// MinAge exempts young sessions from reaping. Default 2m.
	MinAge time.Duration

	// ReapInterval is the reaper sweep period. Default 30s.
	ReapInterval time.Duration

	// EvictIdleWindow is the admission controller's recent-activity
	// window when picking eviction candidates. Default 60s.
	EvictIdleWindow time.Duration

	// EvictionDelay is the pause between evicting a session and spawning
	// the new one, giving the OS time to release the port. Default 500ms.
	EvictionDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PublicHost == "" {
		c.PublicHost = "127.0.0.1"
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.MinAge <= 0 {
		c.MinAge = 2 * time.Minute
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 30 * time.Second
	}
	if c.EvictIdleWindow <= 0 {
		c.EvictIdleWindow = 60 * time.Second
	}
	if c.EvictionDelay <= 0 {
		c.EvictionDelay = 500 * time.Millisecond
	}
	return c
}
