package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sebfried/menubarmaid/internal/event"
)

type call struct {
	stdin string
	name  string
	args  []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := call{name: name, args: args}
	if stdin != nil {
		b, _ := io.ReadAll(stdin)
		c.stdin = string(b)
	}
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeRunner) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no command was run")
	}
	return f.calls[len(f.calls)-1]
}

type usageCounter struct {
	mu  sync.Mutex
	ids []string
}

func (u *usageCounter) RecordShortcut(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids = append(u.ids, id)
	return nil
}

func newTestLauncher(goos string) (*Launcher, *fakeRunner) {
	r := &fakeRunner{}
	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{Runner: r, GOOS: goos, Home: `/Users/mai "d"`})
	return l, r
}

func TestMenu(t *testing.T) {
	l, _ := newTestLauncher("darwin")
	menu := l.Menu()
	if len(menu) != 8 {
		t.Fatalf("menu has %d items, want 8", len(menu))
	}
	var ids []string
	for _, it := range menu {
		ids = append(ids, it.ID)
	}
	want := []string{"firefox", "librewolf", "brave", "chrome", "edge", "vscode", "home", "github"}
	if !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	menu[0].Label = "changed"
	if l.Menu()[0].Label != "Firefox" {
		t.Error("Menu must return a copy")
	}
}

func TestActivate_Darwin(t *testing.T) {
	tests := []struct {
		id   string
		name string
		args []string
	}{
		{"brave", "open", []string{"-n", "-a", "Brave Browser"}},
		{"github", "open", []string{ProjectURL}},
		{"vscode", "osascript", []string{
			"-e", `tell application "Visual Studio Code" to activate`,
			"-e", `tell application "System Events" to keystroke "n" using {shift down, command down}`,
		}},
		{"home", "osascript", []string{"-e", `tell application "Finder" to make new Finder window to POSIX file "/Users/mai \"d\""`}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			l, r := newTestLauncher("darwin")
			if err := l.Activate(context.Background(), tt.id); err != nil {
				t.Fatalf("Activate: %v", err)
			}
			got := r.last(t)
			if got.name != tt.name || !slices.Equal(got.args, tt.args) {
				t.Errorf("ran %s %q, want %s %q", got.name, got.args, tt.name, tt.args)
			}
		})
	}
}

func TestActivate_Linux(t *testing.T) {
	l, r := newTestLauncher("linux")
	if err := l.Activate(context.Background(), "github"); err != nil {
		t.Fatalf("Activate github: %v", err)
	}
	if got := r.last(t); got.name != "xdg-open" {
		t.Errorf("ran %s, want xdg-open", got.name)
	}
	if err := l.Activate(context.Background(), "firefox"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Activate firefox on linux err = %v, want ErrUnsupported", err)
	}
}

func TestActivate_UnknownItem(t *testing.T) {
	l, r := newTestLauncher("darwin")
	if err := l.Activate(context.Background(), "quit"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
	if len(r.calls) != 0 {
		t.Error("no command should run for an unknown item")
	}
}

func TestActivate_RunnerError(t *testing.T) {
	l, r := newTestLauncher("darwin")
	r.err = errors.New("boom")
	usage := &usageCounter{}
	l.usage = usage
	if err := l.Activate(context.Background(), "edge"); err == nil {
		t.Fatal("expected error")
	}
	if len(usage.ids) != 0 {
		t.Error("failed activation must not be counted")
	}
}

func TestActivate_RecordsAndPublishes(t *testing.T) {
	bus := event.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)), 4)
	go bus.Start()
	defer bus.Stop()

	got := make(chan event.Event, 1)
	sub := bus.Subscribe(event.ShortcutActivated, func(e event.Event) { got <- e })
	defer sub.Cancel()

	l, _ := newTestLauncher("darwin")
	usage := &usageCounter{}
	l.usage = usage
	l.bus = bus

	if err := l.Activate(context.Background(), "chrome"); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(usage.ids, []string{"chrome"}) {
		t.Errorf("usage = %v", usage.ids)
	}
	select {
	case e := <-got:
		if e.Data["item"] != "chrome" {
			t.Errorf("event data = %v", e.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no shortcut.activated event")
	}
}

func TestOpenFile(t *testing.T) {
	l, r := newTestLauncher("darwin")
	if err := l.OpenFile(context.Background(), "/tmp/Screenshot 1.png"); err != nil {
		t.Fatal(err)
	}
	if got := r.last(t); got.name != "open" || !slices.Equal(got.args, []string{"/tmp/Screenshot 1.png"}) {
		t.Errorf("ran %s %q", got.name, got.args)
	}

	l, _ = newTestLauncher("plan9")
	if err := l.OpenFile(context.Background(), "/x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestCopyPath(t *testing.T) {
	l, r := newTestLauncher("darwin")
	if err := l.CopyPath(context.Background(), "/tmp/Screenshot 1.png"); err != nil {
		t.Fatal(err)
	}
	got := r.last(t)
	if got.name != "pbcopy" || got.stdin != "/tmp/Screenshot 1.png" {
		t.Errorf("ran %s with stdin %q", got.name, got.stdin)
	}

	l, _ = newTestLauncher("windows")
	if err := l.CopyPath(context.Background(), "x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
