package api

import (
	"errors"
	"net/http"

	"github.com/sebfried/menubarmaid/internal/launcher"
	"github.com/sebfried/menubarmaid/internal/screenshot"
	"github.com/sebfried/menubarmaid/internal/settings"
)

type menuItem struct {
	launcher.Item
	Activations int `json:"activations"`
}

func (r *Router) handleGetMenu(w http.ResponseWriter, req *http.Request) {
	var usage map[string]settings.Usage
	if r.settings != nil {
		var err error
		usage, err = r.settings.ShortcutUsage(req.Context())
		if err != nil {
			r.logger.Warn("loading shortcut usage", "error", err)
		}
	}
	items := r.shortcuts.Menu()
	out := make([]menuItem, 0, len(items))
	for _, it := range items {
		out = append(out, menuItem{Item: it, Activations: usage[it.ID].Activations})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (r *Router) handleActivate(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	err := r.shortcuts.Activate(req.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": id})
	case errors.Is(err, launcher.ErrUnknownItem):
		writeError(w, http.StatusNotFound, "menu item not found")
	case errors.Is(err, launcher.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, "shortcut not supported on this platform")
	default:
		r.logger.Error("activating shortcut", "item", id, "error", err)
		writeError(w, http.StatusBadGateway, "shortcut failed")
	}
}

// handleOpen opens a listed screenshot, addressed by feed id or by path,
// with the default application. Arbitrary paths are refused.
func (r *Router) handleOpen(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	}
	if !decodeBody(w, req, &body) {
		return
	}

	path, ok := r.resolveOpen(body.ID, body.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "screenshot not found")
		return
	}

	err := r.shortcuts.OpenFile(req.Context(), path)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": path})
	case errors.Is(err, launcher.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, "opening files not supported on this platform")
	default:
		r.logger.Error("opening screenshot", "path", path, "error", err)
		writeError(w, http.StatusBadGateway, "open failed")
	}
}

func (r *Router) resolveOpen(id, path string) (string, bool) {
	if id != "" {
		e, ok := r.feed.Get(id)
		return e.FilePath, ok
	}
	if path == "" || r.source == nil {
		return "", false
	}
	return path, isListed(r.source.Current(), path)
}

func isListed(list []screenshot.Record, path string) bool {
	for _, rec := range list {
		if rec.FilePath == path {
			return true
		}
	}
	return false
}
