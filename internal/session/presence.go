package session

import (
	"sync"
	"time"
)

// PresenceRecord tracks active consumers of one stream key.
type PresenceRecord struct {
	Refs         int
	LastActivity time.Time
}

// Presence reference-counts consumers per key with last-activity
// timestamps. Records are created on first attach and never
// independently deleted; they simply go stale once their session is
// reaped.
type Presence struct {
	mu      sync.Mutex
	records map[string]*PresenceRecord
	now     func() time.Time
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{
		records: make(map[string]*PresenceRecord),
		now:     time.Now,
	}
}

// Connect increments the reference count for key and refreshes
// last-activity.
func (p *Presence) Connect(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := p.records[key]
	if rec == nil {
		rec = &PresenceRecord{}
		p.records[key] = rec
	}
	rec.Refs++
	rec.LastActivity = p.now()
}

// Disconnect decrements the reference count, floored at zero.
func (p *Presence) Disconnect(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := p.records[key]
	if rec == nil {
		return
	}
	if rec.Refs > 0 {
		rec.Refs--
	}
	rec.LastActivity = p.now()
}

// Touch refreshes last-activity without changing the reference count.
// Issued on every playback redirect, it doubles as the keep-alive.
func (p *Presence) Touch(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := p.records[key]
	if rec == nil {
		rec = &PresenceRecord{}
		p.records[key] = rec
	}
	rec.LastActivity = p.now()
}

// Lookup returns a copy of the record for key, if any.
func (p *Presence) Lookup(key string) (PresenceRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[key]
	if !ok {
		return PresenceRecord{}, false
	}
	return *rec, true
}

// idleFor reports how long key has gone without activity. A key with no
// record is idle forever.
func (p *Presence) idleFor(key string, now time.Time) time.Duration {
	rec, ok := p.Lookup(key)
	if !ok {
		return 1<<62 - 1
	}
	return now.Sub(rec.LastActivity)
}
