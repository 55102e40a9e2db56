package api

import (
	"net/http"
	"regexp"

	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sebfried/menubarmaid/internal/settings"
)

var settingKeyRe = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	all, err := r.settings.All(req.Context())
	if err != nil {
		r.logger.Error("listing settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (r *Router) handleUpdateSettings(w http.ResponseWriter, req *http.Request) {
	var body map[string]string
	if !decodeBody(w, req, &body) {
		return
	}
	if err := validateSettings(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.settings.SetMany(req.Context(), body); err != nil {
		r.logger.Error("updating settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func validateSettings(values map[string]string) error {
	errs := v.Errors{}
	for k, val := range values {
		if err := v.Validate(k, v.Required, v.Length(1, 128), v.Match(settingKeyRe)); err != nil {
			errs[k] = err
			continue
		}
		if k == settings.KeyWindowBounds {
			if err := v.Validate(val, v.Required, is.JSON); err != nil {
				errs[k] = err
			}
		}
	}
	return errs.Filter()
}
