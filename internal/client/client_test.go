package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebfried/menubarmaid/internal/screenshot"
)

var testEntry = screenshot.Entry{
	ID: "abc",
	Record: screenshot.Record{
		FilePath:     "/desk/Screenshot 1.png",
		FileName:     "Screenshot 1.png",
		CreationTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	},
	FirstSeen: time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// newAgent serves a minimal agent API under /maid requiring token "t0k".
func newAgent(t *testing.T, stream http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /maid/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Health{Status: "ok", Version: "dev", BufferSize: 50, Buffered: 1})
	})
	mux.HandleFunc("GET /maid/api/screenshots", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "" && got != "3" {
			t.Errorf("limit = %q", got)
		}
		writeJSON(w, http.StatusOK, []screenshot.Entry{testEntry})
	})
	mux.HandleFunc("GET /maid/api/screenshots/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != testEntry.ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "screenshot not found"})
			return
		}
		writeJSON(w, http.StatusOK, testEntry)
	})
	mux.HandleFunc("GET /maid/api/screenshots/{id}/file", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != testEntry.ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "screenshot not found"})
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNGDATA")) //nolint:errcheck
	})
	if stream != nil {
		mux.HandleFunc("GET /maid/api/screenshots/stream", stream)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := newAgent(t, nil)
	h, err := New(srv.URL+"/maid/", "t0k").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.BufferSize != 50 {
		t.Errorf("health = %+v", h)
	}
}

func TestListAndGet(t *testing.T) {
	srv := newAgent(t, nil)
	c := New(srv.URL+"/maid", "t0k")
	ctx := context.Background()

	entries, err := c.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "abc" || !entries[0].CreationTime.Equal(testEntry.CreationTime) {
		t.Errorf("entries = %+v", entries)
	}

	got, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FileName != testEntry.FileName {
		t.Errorf("Get = %+v", got)
	}

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing err = %v, want ErrNotFound", err)
	}
}

func TestUnauthorized(t *testing.T) {
	srv := newAgent(t, nil)
	_, err := New(srv.URL+"/maid", "wrong").List(context.Background(), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("unauthorized mapped to not found: %v", err)
	}
}

func TestDownload(t *testing.T) {
	srv := newAgent(t, nil)
	c := New(srv.URL+"/maid", "t0k")

	var buf bytes.Buffer
	if err := c.Download(context.Background(), "abc", &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "PNGDATA" {
		t.Errorf("body = %q", buf.String())
	}
	if err := c.Download(context.Background(), "nope", &buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download missing err = %v, want ErrNotFound", err)
	}
}

func TestStream(t *testing.T) {
	release := make(chan struct{})
	srv := newAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		fmt.Fprint(w, ": ping\n\n")
		b, _ := json.Marshal(map[string]any{"type": "screenshot", "data": testEntry})
		fmt.Fprintf(w, "data: %s\n\n", b)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := New(srv.URL+"/maid", "t0k")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan screenshot.Entry, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Stream(ctx, func(e screenshot.Entry) { got <- e })
	}()

	select {
	case e := <-got:
		if e.ID != "abc" {
			t.Errorf("entry = %+v", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no entry received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stream after cancel = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
	close(release)
}

func TestStreamClosedByAgent(t *testing.T) {
	srv := newAgent(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
	})
	err := New(srv.URL+"/maid", "t0k").Stream(context.Background(), func(screenshot.Entry) {})
	if !errors.Is(err, ErrStreamClosed) {
		t.Errorf("err = %v, want ErrStreamClosed", err)
	}
}
