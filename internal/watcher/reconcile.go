package watcher

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Reconciler triggers periodic rescans on a cron schedule. Rescans catch
// changes the watcher missed, such as events dropped while the system slept.
type Reconciler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReconciler schedules fn according to spec, which accepts standard
// five-field cron expressions as well as descriptors like "@every 5m".
func NewReconciler(spec string, fn func(), logger *slog.Logger) (*Reconciler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, fmt.Errorf("parsing reconcile schedule %q: %w", spec, err)
	}
	return &Reconciler{cron: c, logger: logger}, nil
}

// Start runs the scheduler in its own goroutine.
func (r *Reconciler) Start() {
	r.cron.Start()
	r.logger.Debug("reconcile scheduler started", "entries", len(r.cron.Entries()))
}

// Stop halts the scheduler and waits for a running rescan request to return.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// ValidateSchedule reports whether spec is a valid reconcile schedule.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}
