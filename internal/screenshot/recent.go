package screenshot

import "sync"

// DefaultRecentCapacity is the number of entries kept by the networked feed.
const DefaultRecentCapacity = 50

// Recent is a bounded most-recent-first buffer of entries. When full, the
// oldest entries are evicted. It is safe for concurrent use; readers always
// receive copies.
type Recent struct {
	mu      sync.RWMutex
	entries []Entry // newest first
	cap     int
}

// NewRecent returns an empty buffer holding at most capacity entries. A
// non-positive capacity selects DefaultRecentCapacity.
func NewRecent(capacity int) *Recent {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Recent{cap: capacity, entries: make([]Entry, 0, capacity)}
}

// Push inserts entries at the front in the order given, so the last argument
// becomes the newest. The whole batch is applied under one lock.
func (r *Recent) Push(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Entry, 0, r.cap)
	for i := len(entries) - 1; i >= 0 && len(next) < r.cap; i-- {
		next = append(next, entries[i])
	}
	for _, e := range r.entries {
		if len(next) >= r.cap {
			break
		}
		next = append(next, e)
	}
	r.entries = next
}

// Snapshot returns up to limit entries, newest first. A limit of zero or
// less returns everything.
func (r *Recent) Snapshot(limit int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, r.entries[:n])
	return out
}

// Get returns the entry with the given id.
func (r *Recent) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of buffered entries.
func (r *Recent) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Cap returns the buffer capacity.
func (r *Recent) Cap() int {
	return r.cap
}
