package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/sebfried/menubarmaid/internal/backup"
	"github.com/sebfried/menubarmaid/internal/maintenance"
)

func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not available")
		return
	}

	status, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.logger.Error("getting maintenance status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (r *Router) handleMaintenanceSchedule(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not available")
		return
	}

	var cfg maintenance.ScheduleConfig
	if !decodeBody(w, req, &cfg) {
		return
	}
	if err := r.maintenance.SaveSchedule(req.Context(), cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, r.maintenance.Schedule(req.Context()))
}

func (r *Router) handleMaintenanceOptimize(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not available")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 60*time.Second)
	defer cancel()

	if err := r.maintenance.Optimize(ctx); err != nil {
		r.logger.Error("optimize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "optimize failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}

func (r *Router) handleMaintenanceVacuum(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not available")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Minute)
	defer cancel()

	if err := r.maintenance.Vacuum(ctx); err != nil {
		r.logger.Error("vacuum failed", "error", err)
		writeError(w, http.StatusInternalServerError, "vacuum failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "vacuumed"})
}

func (r *Router) handleListBackups(w http.ResponseWriter, req *http.Request) {
	if r.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backup service not available")
		return
	}
	list, err := r.backups.List()
	if err != nil {
		r.logger.Error("listing backups", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if r.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backup service not available")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Minute)
	defer cancel()

	info, err := r.backups.Backup(ctx)
	if err != nil {
		r.logger.Error("backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed: "+err.Error())
		return
	}
	if err := r.backups.Prune(); err != nil {
		r.logger.Warn("backup prune failed", "error", err)
	}
	writeJSON(w, http.StatusCreated, info)
}

func (r *Router) handleDeleteBackup(w http.ResponseWriter, req *http.Request) {
	if r.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backup service not available")
		return
	}
	err := r.backups.Delete(req.PathValue("filename"))
	switch {
	case errors.Is(err, backup.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "backup not found")
	case err != nil:
		r.logger.Error("deleting backup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
