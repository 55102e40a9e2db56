package api

import (
	"net/http"

	"github.com/sebfried/menubarmaid/internal/logging"
)

func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}
	writeJSON(w, http.StatusOK, r.logManager.Config())
}

func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}

	var cfg logging.Config
	if !decodeBody(w, req, &cfg) {
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Only overwrite fields that are provided.
	cfg = cfg.Merge(r.logManager.Config())

	if r.settings != nil {
		if err := r.settings.SaveLoggingConfig(req.Context(), cfg); err != nil {
			r.logger.Error("persisting logging config", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to persist setting")
			return
		}
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured", "config", cfg.String())
	writeJSON(w, http.StatusOK, cfg)
}
