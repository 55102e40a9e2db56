package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// Defaults for Options fields left at zero.
const (
	DefaultStability     = 2 * time.Second
	DefaultCheckInterval = 100 * time.Millisecond
	DefaultDebounce      = 250 * time.Millisecond
	DefaultPollInterval  = 2 * time.Second
	DefaultReconcile     = "@every 5m"
)

// Options tunes the notifier.
type Options struct {
	// Stability is how long a changed file must stay unchanged before it
	// counts as fully written.
	Stability time.Duration
	// CheckInterval is how often pending files are re-examined.
	CheckInterval time.Duration
	// Debounce is the quiet time after the last event before a refresh.
	Debounce time.Duration
	// PollInterval forces polling instead of fsnotify when positive.
	PollInterval time.Duration
	// Reconcile is a cron spec for periodic rescans. Empty disables it.
	Reconcile string
	// Probe verifies fsnotify delivers events for the directory before
	// relying on it.
	Probe bool
}

func (o Options) withDefaults() Options {
	if o.Stability <= 0 {
		o.Stability = DefaultStability
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

// fileState is the last observed size and mtime of a pending path.
type fileState struct {
	size    int64
	modTime time.Time
	since   time.Time
}

// Service watches the screenshot directory and publishes the refreshed list
// on the event bus once written files have settled.
type Service struct {
	locator  *screenshot.Locator
	eventBus *event.Bus
	logger   *slog.Logger
	opts     Options

	reconcileCh chan struct{}

	mu      sync.Mutex
	current []screenshot.Record
	seq     uint64

	// Owned by the Start goroutine.
	pending   map[string]fileState
	dirty     bool
	lastEvent time.Time
	pollSnap  map[string]fileState
}

// NewService creates a notifier for the locator's directory.
func NewService(locator *screenshot.Locator, eventBus *event.Bus, logger *slog.Logger, opts Options) *Service {
	return &Service{
		locator:     locator,
		eventBus:    eventBus,
		logger:      logger.With("component", "fs-watcher", "dir", locator.Dir),
		opts:        opts.withDefaults(),
		reconcileCh: make(chan struct{}, 1),
		pending:     make(map[string]fileState),
	}
}

// Current returns the most recently published list, or nil before the
// first refresh.
func (s *Service) Current() []screenshot.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	out := make([]screenshot.Record, len(s.current))
	copy(out, s.current)
	return out
}

// RequestReconcile asks the running service to rescan the directory. The
// refreshed list is published only when it differs from the last one.
func (s *Service) RequestReconcile() {
	select {
	case s.reconcileCh <- struct{}{}:
	default:
	}
}

// Subscribe registers fn for every refreshed list.
func (s *Service) Subscribe(fn func([]screenshot.Record)) *event.Subscription {
	return s.eventBus.Subscribe(event.ScreenshotsUpdated, func(e event.Event) {
		fn(e.Screenshots)
	})
}

// Updates returns a channel of refreshed lists that starts with the current
// list, if any. Each call is an independent subscription; the channel is
// closed when ctx ends. A slow reader skips superseded lists but never sees
// them out of order.
func (s *Service) Updates(ctx context.Context) <-chan []screenshot.Record {
	ch := make(chan []screenshot.Record, 1)

	s.mu.Lock()
	seeded := s.seq
	if s.current != nil {
		cp := make([]screenshot.Record, len(s.current))
		copy(cp, s.current)
		ch <- cp
	}
	sub := s.eventBus.Subscribe(event.ScreenshotsUpdated, func(e event.Event) {
		if e.Seq <= seeded {
			return
		}
		select {
		case ch <- e.Screenshots:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e.Screenshots
		}
	})
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Cancel()
		close(ch)
	}()
	return ch
}

// Start blocks until ctx is canceled. It publishes an initial list, then
// watches the directory with fsnotify, falling back to polling when
// fsnotify is unavailable or PollInterval is set.
func (s *Service) Start(ctx context.Context) {
	dir := s.locator.Dir
	pollInterval := s.opts.PollInterval

	var w *fsnotify.Watcher
	if pollInterval <= 0 {
		w = s.openWatcher(dir)
		if w == nil {
			pollInterval = DefaultPollInterval
		} else {
			defer w.Close() //nolint:errcheck
		}
	}

	var reconciler *Reconciler
	if s.opts.Reconcile != "" {
		r, err := NewReconciler(s.opts.Reconcile, s.RequestReconcile, s.logger)
		if err != nil {
			s.logger.Error("invalid reconcile schedule, periodic rescans disabled", "schedule", s.opts.Reconcile, "error", err)
		} else {
			reconciler = r
			reconciler.Start()
			defer reconciler.Stop()
		}
	}

	s.refresh(ctx, true)

	var pollCh <-chan time.Time
	if pollInterval > 0 {
		s.pollSnap = s.readSnapshot()
		t := time.NewTicker(pollInterval)
		defer t.Stop()
		pollCh = t.C
		s.logger.Info("filesystem watcher starting", "mode", "poll", "interval", pollInterval)
	} else {
		s.logger.Info("filesystem watcher starting", "mode", "fsnotify")
	}

	// Check timer starts stopped; armed while files are pending.
	checkTimer := time.NewTimer(0)
	if !checkTimer.Stop() {
		<-checkTimer.C
	}
	armed := false
	arm := func() {
		if !armed {
			resetTimer(checkTimer, s.opts.CheckInterval)
			armed = true
		}
	}

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if s.handleFSEvent(ev) {
				arm()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if s.poll() {
				arm()
			}

		case <-checkTimer.C:
			armed = false
			if s.check(ctx, time.Now()) {
				arm()
			}

		case <-s.reconcileCh:
			s.refresh(ctx, false)
		}
	}
}

func (s *Service) openWatcher(dir string) *fsnotify.Watcher {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("screenshot directory not watchable, polling", "error", err)
		return nil
	}
	if s.opts.Probe && !ProbeFSNotify(dir, 2*time.Second) {
		s.logger.Warn("fsnotify probe failed, polling")
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, polling", "error", err)
		return nil
	}
	if err := w.Add(dir); err != nil {
		s.logger.Warn("failed to watch directory, polling", "error", err)
		_ = w.Close()
		return nil
	}
	return w
}

// handleFSEvent records a relevant event and reports whether the check
// timer needs arming.
func (s *Service) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Clean(filepath.Dir(ev.Name)) != filepath.Clean(s.locator.Dir) {
		return false
	}
	name := filepath.Base(ev.Name)
	if !s.locator.Match(name) {
		return false
	}

	s.logger.Debug("screenshot file event", "name", name, "op", ev.Op.String())
	s.markChanged(ev.Name, time.Now())
	return true
}

// markChanged starts or restarts the stability window for path. Paths that
// no longer exist only mark the list dirty.
func (s *Service) markChanged(path string, now time.Time) {
	s.dirty = true
	s.lastEvent = now
	info, err := os.Stat(path)
	if err != nil {
		delete(s.pending, path)
		return
	}
	s.pending[path] = fileState{size: info.Size(), modTime: info.ModTime(), since: now}
}

// check advances pending files and refreshes once everything has settled.
// It reports whether another check is needed.
func (s *Service) check(ctx context.Context, now time.Time) bool {
	for path, st := range s.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(s.pending, path)
			continue
		}
		if info.Size() != st.size || !info.ModTime().Equal(st.modTime) {
			s.pending[path] = fileState{size: info.Size(), modTime: info.ModTime(), since: now}
			continue
		}
		if now.Sub(st.since) >= s.opts.Stability {
			delete(s.pending, path)
		}
	}

	if len(s.pending) > 0 {
		return true
	}
	if !s.dirty {
		return false
	}
	if now.Sub(s.lastEvent) < s.opts.Debounce {
		return true
	}
	s.dirty = false
	s.refresh(ctx, true)
	return false
}

// refresh lists the directory and publishes the result. When force is
// false the list is published only if it differs from the last one.
func (s *Service) refresh(ctx context.Context, force bool) {
	records := s.locator.List(ctx, 0)

	s.mu.Lock()
	if !force && s.current != nil && equalRecords(s.current, records) {
		s.mu.Unlock()
		s.logger.Debug("reconcile found no changes")
		return
	}
	s.current = records
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.logger.Info("screenshot list refreshed", "count", len(records))
	out := make([]screenshot.Record, len(records))
	copy(out, records)
	s.eventBus.Publish(event.Event{
		Type:        event.ScreenshotsUpdated,
		Seq:         seq,
		Screenshots: out,
	})
}

// poll diffs the directory against the previous snapshot and feeds changed
// entries into the pending set. It reports whether anything changed.
func (s *Service) poll() bool {
	next := s.readSnapshot()
	now := time.Now()
	changed := false

	for path, st := range next {
		old, existed := s.pollSnap[path]
		if !existed || old.size != st.size || !old.modTime.Equal(st.modTime) {
			s.logger.Debug("poll: screenshot changed", "path", path)
			s.markChanged(path, now)
			changed = true
		}
	}
	for path := range s.pollSnap {
		if _, ok := next[path]; !ok {
			s.logger.Debug("poll: screenshot removed", "path", path)
			s.markChanged(path, now)
			changed = true
		}
	}
	s.pollSnap = next
	return changed
}

// readSnapshot returns the size and mtime of every matching file.
func (s *Service) readSnapshot() map[string]fileState {
	snap := make(map[string]fileState)
	entries, err := os.ReadDir(s.locator.Dir)
	if err != nil {
		return snap
	}
	for _, e := range entries {
		if e.IsDir() || !s.locator.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snap[filepath.Join(s.locator.Dir, e.Name())] = fileState{size: info.Size(), modTime: info.ModTime()}
	}
	return snap
}

func equalRecords(a, b []screenshot.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FilePath != b[i].FilePath || !a[i].CreationTime.Equal(b[i].CreationTime) {
			return false
		}
	}
	return true
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
