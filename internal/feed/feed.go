// Package feed turns refreshed screenshot lists into a stream of newly
// detected entries backed by a bounded most-recent buffer.
package feed

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// Feed tracks detected screenshots for networked consumers.
type Feed struct {
	bus    *event.Bus
	recent *screenshot.Recent
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu     sync.Mutex
	seeded bool
	seen   map[string]struct{}
	sub    *event.Subscription
}

// New creates a feed with the given buffer capacity.
func New(bus *event.Bus, capacity int, logger *slog.Logger) *Feed {
	return &Feed{
		bus:    bus,
		recent: screenshot.NewRecent(capacity),
		logger: logger.With("component", "feed"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		seen:   make(map[string]struct{}),
	}
}

// Start subscribes the feed to refreshed lists. It is safe to call once.
func (f *Feed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		return
	}
	f.sub = f.bus.Subscribe(event.ScreenshotsUpdated, func(e event.Event) {
		f.Apply(e.Screenshots)
	})
}

// Stop cancels the feed's subscription.
func (f *Feed) Stop() {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	sub.Cancel()
}

// Apply processes one refreshed list. The first list seeds the buffer
// without announcing anything; later lists announce each path not present
// in the previous list, oldest first.
func (f *Feed) Apply(list []screenshot.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := make(map[string]struct{}, len(list))
	for _, r := range list {
		current[r.FilePath] = struct{}{}
	}

	// list is newest first; walk backwards so older records go in first.
	var fresh []screenshot.Entry
	for i := len(list) - 1; i >= 0; i-- {
		r := list[i]
		if f.seeded {
			if _, ok := f.seen[r.FilePath]; ok {
				continue
			}
		}
		fresh = append(fresh, screenshot.Entry{
			ID:        f.newID(),
			Record:    r,
			FirstSeen: f.now(),
		})
	}
	f.seen = current

	if !f.seeded {
		f.seeded = true
		if len(fresh) > f.recent.Cap() {
			fresh = fresh[len(fresh)-f.recent.Cap():]
		}
		f.recent.Push(fresh...)
		f.logger.Info("feed seeded", "count", len(fresh))
		return
	}
	if len(fresh) == 0 {
		return
	}

	f.recent.Push(fresh...)
	for i := range fresh {
		entry := fresh[i]
		f.logger.Info("screenshot detected", "id", entry.ID, "file", entry.FileName)
		f.bus.Publish(event.Event{
			Type:  event.ScreenshotDetected,
			Entry: &entry,
		})
	}
}

// List returns up to limit buffered entries, newest first.
func (f *Feed) List(limit int) []screenshot.Entry {
	return f.recent.Snapshot(limit)
}

// Get returns the buffered entry with the given id.
func (f *Feed) Get(id string) (screenshot.Entry, bool) {
	return f.recent.Get(id)
}

// Len returns the number of buffered entries.
func (f *Feed) Len() int {
	return f.recent.Len()
}

// Cap returns the buffer capacity.
func (f *Feed) Cap() int {
	return f.recent.Cap()
}

// Subscribe registers fn for every newly detected entry.
func (f *Feed) Subscribe(fn func(screenshot.Entry)) *event.Subscription {
	return f.bus.Subscribe(event.ScreenshotDetected, func(e event.Event) {
		if e.Entry != nil {
			fn(*e.Entry)
		}
	})
}

// SubscriberCount returns the number of active detection subscribers.
func (f *Feed) SubscriberCount() int {
	return f.bus.SubscriberCount(event.ScreenshotDetected)
}
