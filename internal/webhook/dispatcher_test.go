package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func detectedEvent() event.Event {
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return event.Event{
		Type:      event.ScreenshotDetected,
		Timestamp: created.Add(2 * time.Second),
		Entry: &screenshot.Entry{
			ID: "abc",
			Record: screenshot.Record{
				FilePath:     "/Users/u/Desktop/Screenshot 1.png",
				FileName:     "Screenshot 1.png",
				CreationTime: created,
			},
			FirstSeen: created.Add(2 * time.Second),
		},
	}
}

// capture records the last JSON body posted to it.
type capture struct {
	mu   sync.Mutex
	body map[string]any
	ua   string
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	json.NewDecoder(r.Body).Decode(&c.body) //nolint:errcheck
	c.ua = r.Header.Get("User-Agent")
	w.WriteHeader(http.StatusOK)
}

func (c *capture) get() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

func TestDispatcher_GenericWebhook(t *testing.T) {
	var c capture
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	d := NewDispatcherWithHTTPClient([]Endpoint{{Name: "test", URL: srv.URL}}, srv.Client(), testLogger())
	d.HandleEvent(detectedEvent())
	d.Wait()

	got := c.get()
	if got == nil {
		t.Fatal("expected to receive webhook payload")
	}
	if got["event"] != "screenshot.detected" {
		t.Errorf("event = %v, want screenshot.detected", got["event"])
	}
	shot, ok := got["screenshot"].(map[string]any)
	if !ok {
		t.Fatalf("screenshot = %v, want object", got["screenshot"])
	}
	if shot["fileName"] != "Screenshot 1.png" || shot["id"] != "abc" {
		t.Errorf("screenshot = %v", shot)
	}
	if !strings.HasPrefix(c.ua, "menubarmaid-webhook/") {
		t.Errorf("user agent = %q", c.ua)
	}
}

func TestDispatcher_DiscordFormat(t *testing.T) {
	var c capture
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	d := NewDispatcherWithHTTPClient([]Endpoint{{Name: "discord", URL: srv.URL, Type: TypeDiscord}}, srv.Client(), testLogger())
	d.HandleEvent(detectedEvent())
	d.Wait()

	embeds, ok := c.get()["embeds"].([]any)
	if !ok || len(embeds) == 0 {
		t.Fatal("expected discord embeds array")
	}
	embed := embeds[0].(map[string]any)
	want := "New screenshot Screenshot 1.png (2024-01-02 10:00:00)"
	if embed["description"] != want {
		t.Errorf("description = %v, want %q", embed["description"], want)
	}
}

func TestFormatPayload_SlackAndGotify(t *testing.T) {
	e := event.Event{Type: event.ShortcutActivated, Data: map[string]any{"message": "Opened Firefox"}}

	body, _ := formatPayload(&Endpoint{Type: TypeSlack}, e)
	if !strings.Contains(string(body), "Opened Firefox") || !strings.Contains(string(body), "shortcut.activated") {
		t.Errorf("slack body = %s", body)
	}

	body, ct := formatPayload(&Endpoint{Type: TypeGotify}, e)
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if m["message"] != "Opened Firefox" || ct != "application/json" {
		t.Errorf("gotify = %v (%s)", m, ct)
	}
}

func TestDispatcher_RetryOn500(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcherWithHTTPClient([]Endpoint{{Name: "retry-test", URL: srv.URL}}, srv.Client(), testLogger())
	d.backoff = time.Millisecond
	d.HandleEvent(detectedEvent())
	d.Wait()

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDispatcher_MaxRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcherWithHTTPClient([]Endpoint{{Name: "maxretry-test", URL: srv.URL}}, srv.Client(), testLogger())
	d.backoff = time.Millisecond
	d.HandleEvent(detectedEvent())
	d.Wait()

	if got := attempts.Load(); got != maxRetries {
		t.Errorf("attempts = %d, want %d (max retries)", got, maxRetries)
	}
}

func TestDispatcher_NoMatchingEndpoints(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer srv.Close()

	d := NewDispatcherWithHTTPClient([]Endpoint{{Name: "other", URL: srv.URL, Events: []string{"shortcut.activated"}}}, srv.Client(), testLogger())
	d.HandleEvent(detectedEvent())
	d.Wait()

	if got := attempts.Load(); got != 0 {
		t.Errorf("attempts = %d, want 0", got)
	}
}

func TestDispatcher_SubscribeThroughBus(t *testing.T) {
	var c capture
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	bus := event.NewBus(testLogger(), 8)
	go bus.Start()
	defer bus.Stop()

	d := NewDispatcherWithHTTPClient([]Endpoint{
		{Name: "a", URL: srv.URL},
		{Name: "b", URL: srv.URL, Events: []string{"screenshot.detected", "shortcut.activated"}},
	}, srv.Client(), testLogger())
	subs := d.Subscribe(bus)
	if len(subs) != 2 {
		t.Fatalf("subscriptions = %d, want 2 distinct types", len(subs))
	}
	defer func() {
		for _, s := range subs {
			s.Cancel()
		}
	}()

	bus.Publish(detectedEvent())
	deadline := time.Now().Add(2 * time.Second)
	for c.get() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	d.Wait()
	if c.get() == nil {
		t.Fatal("expected delivery through the bus")
	}
}

func TestEndpoint_Wants(t *testing.T) {
	def := Endpoint{}
	if !def.Wants(event.ScreenshotDetected) || def.Wants(event.ScreenshotsUpdated) {
		t.Error("default endpoint should only want screenshot.detected")
	}
	explicit := Endpoint{Events: []string{"screenshots.updated"}}
	if !explicit.Wants(event.ScreenshotsUpdated) || explicit.Wants(event.ScreenshotDetected) {
		t.Error("explicit events not honoured")
	}
}
