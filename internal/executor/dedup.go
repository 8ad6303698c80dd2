package executor

import (
	"sync"
	"time"
)

// Dedup remembers tender IDs that have already been acted on so a tender the
// exchange keeps listing for a moment after acceptance is not handled twice.
// It is safe for concurrent use.
type Dedup struct {
	seen map[int64]time.Time
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewDedup creates a Dedup that forgets an ID ttl after it was marked.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[int64]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen reports whether id was marked within the TTL window.
func (d *Dedup) Seen(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	at, ok := d.seen[id]
	return ok && d.now().Sub(at) < d.ttl
}

// Mark records id as handled.
func (d *Dedup) Mark(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = d.now()
}

// Cleanup drops expired entries.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, at := range d.seen {
		if now.Sub(at) >= d.ttl {
			delete(d.seen, id)
		}
	}
}

// Len returns the number of tracked IDs.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
