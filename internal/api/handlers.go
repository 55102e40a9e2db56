package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/sebfried/menubarmaid/internal/icon"
	"github.com/sebfried/menubarmaid/internal/version"
	"github.com/sebfried/menubarmaid/web/templates"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     version.Version,
		"commit":      version.Commit,
		"time":        time.Now().UTC().Format(time.RFC3339),
		"watchedDir":  r.watchedDir,
		"buffered":    r.feed.Len(),
		"bufferSize":  r.feed.Cap(),
		"subscribers": r.feed.SubscriberCount(),
	})
}

// handleIndex sits behind the token middleware, so the page only ever embeds
// the configured token and never echoes request input.
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	renderTempl(w, req, templates.GridPage(templates.GridData{
		Title:      "Screenshots",
		BasePath:   r.basePath,
		Token:      r.token,
		WatchedDir: r.watchedDir,
		Entries:    r.feed.List(0),
	}))
}

var faviconPNG = sync.OnceValues(func() ([]byte, error) {
	return icon.EncodePNG(icon.Favicon(32))
})

func (r *Router) handleFavicon(w http.ResponseWriter, _ *http.Request) {
	data, err := faviconPNG()
	if err != nil {
		r.logger.Error("rendering favicon", "error", err)
		writeError(w, http.StatusInternalServerError, "favicon unavailable")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data) //nolint:errcheck
}

func renderTempl(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// decodeBody decodes a size-capped JSON body into v. On failure it writes the
// error response and returns false.
func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	err := json.NewDecoder(req.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
