package session

import (
	"testing"
	"time"
)

func TestPresenceConnectDisconnect(t *testing.T) {
	p := NewPresence()

	p.Connect("somechannel")
	p.Connect("somechannel")
	rec, ok := p.Lookup("somechannel")
	if !ok {
		t.Fatal("record missing after connect")
	}
	if rec.Refs != 2 {
		t.Errorf("refs = %d, want 2", rec.Refs)
	}

	p.Disconnect("somechannel")
	p.Disconnect("somechannel")
	p.Disconnect("somechannel") // extra disconnect must not go negative
	rec, _ = p.Lookup("somechannel")
	if rec.Refs != 0 {
		t.Errorf("refs = %d, want 0 (floored)", rec.Refs)
	}
}

func TestPresenceDisconnectUnknownKey(t *testing.T) {
	p := NewPresence()
	p.Disconnect("neverseen")
	if _, ok := p.Lookup("neverseen"); ok {
		t.Error("disconnect created a record for an unknown key")
	}
}

func TestPresenceTouchRefreshesActivity(t *testing.T) {
	p := NewPresence()
	base := time.Now()
	p.now = func() time.Time { return base }

	p.Connect("somechannel")
	p.now = func() time.Time { return base.Add(time.Minute) }
	p.Touch("somechannel")

	rec, _ := p.Lookup("somechannel")
	if !rec.LastActivity.Equal(base.Add(time.Minute)) {
		t.Errorf("last activity = %v, want touch time", rec.LastActivity)
	}
	if rec.Refs != 1 {
		t.Errorf("refs = %d, touch must not change the count", rec.Refs)
	}
}

func TestPresenceIdleFor(t *testing.T) {
	p := NewPresence()
	base := time.Now()
	p.now = func() time.Time { return base }
	p.Connect("somechannel")

	now := base.Add(90 * time.Second)
	if got := p.idleFor("somechannel", now); got != 90*time.Second {
		t.Errorf("idleFor = %v, want 90s", got)
	}
	if got := p.idleFor("unknown", now); got < 100*365*24*time.Hour {
		t.Errorf("idleFor on unknown key = %v, want effectively infinite", got)
	}
}

func TestReapOnceHonorsMinAgeAndIdleTimeout(t *testing.T) {
	launcher := newFakeLauncher()
	m := newTestManager(t, launcher, 9000, 9010)

	for _, key := range []string{"young", "watched", "stale"} {
		if _, err := m.Acquire(t.Context(), key, "best"); err != nil {
			t.Fatalf("Acquire %s: %v", key, err)
		}
	}
	m.Presence().Connect("watched")

	// Sweep as if 3 minutes have passed: everything clears MinAge, but
	// "watched" was active at minute 3 minus nothing, so refresh it at
	// sweep time minus one minute to stay under IdleTimeout.
	sweep := time.Now().Add(3 * time.Minute)
	m.presence.mu.Lock()
	m.presence.records["watched"].LastActivity = sweep.Add(-time.Minute)
	m.presence.mu.Unlock()

	// Age "young" down by keeping its StartedAt fresh and backdating the rest.
	m.mu.Lock()
	m.sessions["watched"].StartedAt = sweep.Add(-10 * time.Minute)
	m.sessions["stale"].StartedAt = sweep.Add(-10 * time.Minute)
	m.sessions["young"].StartedAt = sweep.Add(-time.Minute)
	m.mu.Unlock()

	if reaped := m.reapOnce(sweep); reaped != 1 {
		t.Errorf("reaped %d sessions, want 1", reaped)
	}

	waitForCount(t, m, 2)
	keys := activeKeys(m)
	if len(keys) != 2 || keys[0] != "watched" || keys[1] != "young" {
		t.Errorf("surviving keys = %v, want [watched young]", keys)
	}
}
