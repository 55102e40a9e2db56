// Package maintenance keeps the settings database compact: status
// reporting, PRAGMA optimize with WAL checkpoints, VACUUM, and an optional
// background schedule.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/sebfried/menubarmaid/internal/settings"
)

// Schedule defaults used when nothing is stored.
const (
	DefaultEnabled       = true
	DefaultIntervalHours = 24
)

// Status holds database maintenance status information.
type Status struct {
	DBFileSize       int64  `json:"db_file_size"`
	WALFileSize      int64  `json:"wal_file_size"`
	PageCount        int64  `json:"page_count"`
	PageSize         int64  `json:"page_size"`
	LastOptimizeAt   string `json:"last_optimize_at,omitempty"`
	ScheduleEnabled  bool   `json:"schedule_enabled"`
	ScheduleInterval int    `json:"schedule_interval_hours"`
}

// ScheduleConfig holds the maintenance schedule settings.
type ScheduleConfig struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"interval_hours"`
}

// Service provides database maintenance operations.
type Service struct {
	db       *sql.DB
	dbPath   string
	settings *settings.Service
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a maintenance service. dbPath may be
// database.MemoryPath, in which case file sizes report as zero.
func NewService(db *sql.DB, dbPath string, store *settings.Service, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		dbPath:   dbPath,
		settings: store,
		logger:   logger.With(slog.String("component", "maintenance")),
		now:      time.Now,
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}

	st.LastOptimizeAt = s.settings.GetString(ctx, settings.KeyMaintenanceLastOptimize, "")
	sched := s.Schedule(ctx)
	st.ScheduleEnabled = sched.Enabled
	st.ScheduleInterval = sched.IntervalHours
	return st, nil
}

// Schedule returns the stored schedule, falling back to the defaults.
func (s *Service) Schedule(ctx context.Context) ScheduleConfig {
	hours := s.settings.GetInt(ctx, settings.KeyMaintenanceInterval, DefaultIntervalHours)
	if hours < 1 {
		hours = DefaultIntervalHours
	}
	return ScheduleConfig{
		Enabled:       s.settings.GetBool(ctx, settings.KeyMaintenanceEnabled, DefaultEnabled),
		IntervalHours: hours,
	}
}

// SaveSchedule persists cfg. The running scheduler picks it up on its next
// tick.
func (s *Service) SaveSchedule(ctx context.Context, cfg ScheduleConfig) error {
	if cfg.IntervalHours < 1 {
		return fmt.Errorf("interval_hours must be at least 1, got %d", cfg.IntervalHours)
	}
	return s.settings.SetMany(ctx, map[string]string{
		settings.KeyMaintenanceEnabled:  strconv.FormatBool(cfg.Enabled),
		settings.KeyMaintenanceInterval: strconv.Itoa(cfg.IntervalHours),
	})
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Debug("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}

	s.logger.Debug("running WAL checkpoint")
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.settings.Set(ctx, settings.KeyMaintenanceLastOptimize, now); err != nil {
		s.logger.Warn("recording optimize timestamp", "error", err)
	}

	s.logger.Info("optimize complete")
	return nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	s.logger.Info("vacuum complete")
	return nil
}

// StartScheduler runs optimize on the stored interval until the context is
// canceled. A disabled schedule is re-checked every tick so enabling it
// through the API takes effect without a restart.
func (s *Service) StartScheduler(ctx context.Context) {
	interval := s.interval(ctx)
	s.logger.Info("maintenance scheduler started", slog.String("interval", interval.String()))

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-timer.C:
			if s.Schedule(ctx).Enabled {
				if err := s.Optimize(ctx); err != nil {
					s.logger.Error("scheduled optimize failed", slog.Any("error", err))
				}
			}
			timer.Reset(s.interval(ctx))
		}
	}
}

func (s *Service) interval(ctx context.Context) time.Duration {
	return time.Duration(s.Schedule(ctx).IntervalHours) * time.Hour
}
