package address

import (
	"fmt"
	"sync"
)

// Resolver maps provider base ids back to logical stream keys. Entries are
// learned opportunistically while live status is polled; the map is never
// authoritative, so a miss triggers a refresh before failing.
type Resolver struct {
	mu      sync.RWMutex
	byBase  map[int64]string
	refresh func() // optional; invoked synchronously on cache miss
}

// NewResolver creates an empty resolver. The refresh callback is invoked
// on a cache miss to give the caller one chance to repopulate the map
// (typically by forcing a provider poll); it may be nil.
func NewResolver(refresh func()) *Resolver {
	return &Resolver{
		byBase:  make(map[int64]string),
		refresh: refresh,
	}
}

// Learn records a base id → key mapping.
func (r *Resolver) Learn(baseID int64, key string) {
	r.mu.Lock()
	r.byBase[baseID] = key
	r.mu.Unlock()
}

// Lookup resolves a base id to a stream key. On a miss it runs the
// refresh callback once and retries before giving up.
func (r *Resolver) Lookup(baseID int64) (string, error) {
	r.mu.RLock()
	key, ok := r.byBase[baseID]
	r.mu.RUnlock()
	if ok {
		return key, nil
	}

	if r.refresh != nil {
		r.refresh()
		r.mu.RLock()
		key, ok = r.byBase[baseID]
		r.mu.RUnlock()
		if ok {
			return key, nil
		}
	}

	return "", fmt.Errorf("unknown base id %d", baseID)
}
