// Package ports provides the local port pool for viewing sessions.
package ports

import (
	"fmt"
	"sync"
)

// Allocator hands out ports from [start,end] with a cyclic cursor.
// It is not a free-list: a released port is only handed out again once
// the cursor laps back to it. Pool capacity equals the range width.
type Allocator struct {
	mu    sync.Mutex
	start int
	end   int
	next  int
}

// NewAllocator creates an allocator over the inclusive range [start,end].
func NewAllocator(start, end int) (*Allocator, error) {
	if start <= 0 || end < start {
		return nil, fmt.Errorf("invalid port range %d-%d", start, end)
	}
	return &Allocator{start: start, end: end, next: start}, nil
}

// Next returns the next port in the range, wrapping cyclically.
func (a *Allocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	port := a.next
	a.next++
	if a.next > a.end {
		a.next = a.start
	}
	return port
}

// Capacity returns the width of the port range, which bounds the number
// of concurrently live viewing sessions.
func (a *Allocator) Capacity() int {
	return a.end - a.start + 1
}
