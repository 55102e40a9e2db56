package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	// ScreenshotsUpdated carries the full, freshly located screenshot list.
	ScreenshotsUpdated Type = "screenshots.updated"
	// ScreenshotDetected carries one newly seen screenshot entry.
	ScreenshotDetected Type = "screenshot.detected"
	// ShortcutActivated is published after a menu shortcut ran.
	ShortcutActivated Type = "shortcut.activated"
)

// Event represents something that happened in the system.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	// Seq increases with every event a publisher emits for the same Type.
	Seq         uint64              `json:"seq,omitempty"`
	Screenshots []screenshot.Record `json:"screenshots,omitempty"`
	Entry       *screenshot.Entry   `json:"entry,omitempty"`
	Data        map[string]any      `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Subscription is a registered handler. Cancel removes it.
type Subscription struct {
	bus *Bus
	typ Type
	h   Handler

	mu        sync.Mutex // held for the duration of each delivery
	cancelled bool
}

// Cancel stops delivery to the handler. It is idempotent. When Cancel
// returns, any in-flight delivery has completed and no further deliveries
// will happen. Cancel must not be called from within the handler itself.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	already := s.cancelled
	s.cancelled = true
	s.mu.Unlock()
	if !already {
		s.bus.remove(s)
	}
}

func (s *Subscription) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.h(e)
}

// Bus is an in-process event bus backed by a buffered channel. A single
// goroutine dispatches events, so every subscriber observes events in
// publish order.
type Bus struct {
	ch      chan Event
	mu      sync.RWMutex
	subs    map[Type][]*Subscription
	logger  *slog.Logger
	done    chan struct{}
	stopped bool
}

// NewBus creates a new event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:     make(chan Event, bufSize),
		subs:   make(map[Type][]*Subscription),
		logger: logger.With("component", "event-bus"),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) *Subscription {
	s := &Subscription{bus: b, typ: t, h: h}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], s)
	return s
}

// SubscriberCount returns the number of active subscriptions for t.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.typ]
	for i, sub := range list {
		if sub == s {
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			b.subs[s.typ] = append(next, list[i+1:]...)
			return
		}
	}
}

// Publish sends an event to the bus. Non-blocking; drops with a warning if the buffer is full.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("event bus full, dropping event", "type", string(e.Type))
	}
}

// Start begins draining the channel and dispatching events to subscribers.
// Call this in a goroutine. It blocks until Stop is called.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

// Stop signals the bus to stop processing events after draining the buffer.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopped = true
		close(b.done)
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := b.subs[e.Type]
	b.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
				}
			}()
			s.deliver(e)
		}()
	}
}
