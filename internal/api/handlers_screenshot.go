package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sebfried/menubarmaid/internal/image"
	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// defaultListLimit is used when limit is missing or not a positive integer.
const defaultListLimit = 10

// streamBuffer is how many detections a slow stream client may lag behind
// before further ones are dropped for it.
const streamBuffer = 32

func (r *Router) handleListScreenshots(w http.ResponseWriter, req *http.Request) {
	limit := defaultListLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	limit = min(limit, r.feed.Cap())
	writeJSON(w, http.StatusOK, r.feed.List(limit))
}

func (r *Router) handleGetScreenshot(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.feed.Get(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "screenshot not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// lookupFile resolves the id to an entry whose file still exists. It writes
// the 404 itself and reports false when either is missing.
func (r *Router) lookupFile(w http.ResponseWriter, req *http.Request) (screenshot.Entry, bool) {
	entry, ok := r.feed.Get(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "screenshot not found")
		return screenshot.Entry{}, false
	}
	info, err := os.Stat(entry.FilePath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("stat screenshot file", "path", entry.FilePath, "error", err)
		}
		writeError(w, http.StatusNotFound, "screenshot file not found")
		return screenshot.Entry{}, false
	}
	return entry, true
}

func (r *Router) handleScreenshotFile(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupFile(w, req)
	if !ok {
		return
	}
	http.ServeFile(w, req, entry.FilePath)
}

func (r *Router) handleThumbnail(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupFile(w, req)
	if !ok {
		return
	}
	q := req.URL.Query()
	width, _ := strconv.Atoi(q.Get("w"))
	height, _ := strconv.Atoi(q.Get("h"))

	f, err := os.Open(entry.FilePath)
	if err != nil {
		writeError(w, http.StatusNotFound, "screenshot file not found")
		return
	}
	defer f.Close() //nolint:errcheck

	data, err := image.Thumbnail(f, width, height)
	if err != nil {
		r.logger.Warn("rendering thumbnail", "path", entry.FilePath, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "cannot render thumbnail")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data) //nolint:errcheck
}

type streamMessage struct {
	Type string            `json:"type"`
	Data *screenshot.Entry `json:"data,omitempty"`
}

// handleStream pushes every newly detected screenshot as a server-sent
// event. The feed subscription exists only while the handler runs.
func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) {
	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		r.logger.Debug("clearing stream write deadline", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, streamMessage{Type: "connected"}); err != nil {
		r.logger.Debug("stream closed before connect", "error", err)
		return
	}

	ch := make(chan screenshot.Entry, streamBuffer)
	sub := r.feed.Subscribe(func(e screenshot.Entry) {
		select {
		case ch <- e:
		default:
			r.logger.Warn("stream client lagging, dropping screenshot", "id", e.ID, "remote", req.RemoteAddr)
		}
	})
	defer sub.Cancel()

	r.logger.Debug("stream opened", "remote", req.RemoteAddr)
	defer r.logger.Debug("stream closed", "remote", req.RemoteAddr)

	ping := time.NewTicker(r.keepalive)
	defer ping.Stop()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-r.ctx.Done():
			return
		case e := <-ch:
			if err := writeEvent(w, rc, streamMessage{Type: "screenshot", Data: &e}); err != nil {
				return
			}
		case <-ping.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, rc *http.ResponseController, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
