// Package launcher runs the shortcut menu actions and opens files with the
// operating system's default handler.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/sebfried/menubarmaid/internal/event"
)

// ProjectURL is opened by the GitHub menu item.
const ProjectURL = "https://github.com/sebfried/menubarmaid"

const commandTimeout = 10 * time.Second

var (
	// ErrUnknownItem is returned by Activate for an id not in the menu.
	ErrUnknownItem = errors.New("unknown menu item")
	// ErrUnsupported is returned when an action has no implementation on
	// the running operating system.
	ErrUnsupported = errors.New("action not supported on this platform")
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// UsageRecorder counts shortcut activations.
type UsageRecorder interface {
	RecordShortcut(ctx context.Context, itemID string) error
}

// Options configures a Launcher. Zero values select the real platform.
type Options struct {
	Runner Runner
	GOOS   string
	Home   string
	Bus    *event.Bus
	Usage  UsageRecorder
}

// Launcher owns the static shortcut menu.
type Launcher struct {
	runner Runner
	goos   string
	home   string
	bus    *event.Bus
	usage  UsageRecorder
	logger *slog.Logger
	items  []Item
}

// New creates a Launcher.
func New(logger *slog.Logger, opts Options) *Launcher {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	return &Launcher{
		runner: opts.Runner,
		goos:   opts.GOOS,
		home:   opts.Home,
		bus:    opts.Bus,
		usage:  opts.Usage,
		logger: logger.With(slog.String("component", "launcher")),
		items:  defaultMenu(),
	}
}

// Menu returns a copy of the menu items in display order.
func (l *Launcher) Menu() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Item returns the menu item with the given id.
func (l *Launcher) Item(id string) (Item, bool) {
	for _, it := range l.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Activate runs the action of the menu item id.
func (l *Launcher) Activate(ctx context.Context, id string) error {
	item, ok := l.Item(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	name, args, err := l.command(item)
	if err != nil {
		return fmt.Errorf("activating %s: %w", id, err)
	}
	if err := l.run(ctx, nil, name, args...); err != nil {
		return fmt.Errorf("activating %s: %w", id, err)
	}
	l.logger.Info("shortcut activated", "item", id)

	if l.usage != nil {
		if err := l.usage.RecordShortcut(ctx, id); err != nil {
			l.logger.Warn("recording shortcut usage", "item", id, "error", err)
		}
	}
	if l.bus != nil {
		l.bus.Publish(event.Event{
			Type:      event.ShortcutActivated,
			Timestamp: time.Now().UTC(),
			Data:      map[string]any{"item": id, "message": "Activated " + item.Label},
		})
	}
	return nil
}

// OpenFile opens path with the default application.
func (l *Launcher) OpenFile(ctx context.Context, path string) error {
	var name string
	switch l.goos {
	case "darwin":
		name = "open"
	case "linux", "freebsd", "openbsd", "netbsd":
		name = "xdg-open"
	default:
		return ErrUnsupported
	}
	if err := l.run(ctx, nil, name, path); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	return nil
}

// CopyPath places text on the system clipboard.
func (l *Launcher) CopyPath(ctx context.Context, text string) error {
	var name string
	var args []string
	switch l.goos {
	case "darwin":
		name = "pbcopy"
	case "linux":
		if _, err := exec.LookPath("xclip"); err == nil {
			name, args = "xclip", []string{"-selection", "clipboard"}
		} else {
			name, args = "xsel", []string{"--clipboard", "--input"}
		}
	default:
		return ErrUnsupported
	}
	if err := l.run(ctx, strings.NewReader(text), name, args...); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

func (l *Launcher) run(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	l.logger.Debug("running command", "name", name, "args", args)
	return l.runner.Run(ctx, stdin, name, args...)
}
