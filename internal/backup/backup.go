// Package backup writes point-in-time copies of the settings database and
// prunes old ones.
package backup

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

const timeLayout = "20060102-150405"

// backupPattern matches backup filenames: menubarmaid-YYYYMMDD-HHMMSS.db
var backupPattern = regexp.MustCompile(`^menubarmaid-\d{8}-\d{6}\.db$`)

// ErrInvalidName is returned for names that are not backup files.
var ErrInvalidName = errors.New("invalid backup filename")

// Info describes a backup file.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages database backups.
type Service struct {
	db        *sql.DB
	dir       string
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a backup service keeping at most retention files in
// dir. A retention below one keeps everything.
func NewService(db *sql.DB, dir string, retention int, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		dir:       dir,
		retention: retention,
		logger:    logger.With(slog.String("component", "backup")),
		now:       time.Now,
	}
}

// Dir returns the backup directory.
func (s *Service) Dir() string { return s.dir }

// Backup creates a snapshot of the database using VACUUM INTO.
func (s *Service) Backup(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	filename := "menubarmaid-" + now.Format(timeLayout) + ".db"
	dest := filepath.Join(s.dir, filename)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	fi, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", fi.Size()))

	return &Info{Filename: filename, Size: fi.Size(), CreatedAt: now}, nil
}

// List returns all backup files, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() || !backupPattern.MatchString(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "menubarmaid-"), ".db")
		ts, err := time.Parse(timeLayout, stamp)
		if err != nil {
			ts = fi.ModTime()
		}
		backups = append(backups, Info{Filename: entry.Name(), Size: fi.Size(), CreatedAt: ts})
	}

	slices.SortFunc(backups, func(a, b Info) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return backups, nil
}

// Delete removes a single backup file by filename.
func (s *Service) Delete(filename string) error {
	if !IsValidFilename(filename) {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("removing backup: %w", err)
	}
	s.logger.Info("backup deleted", slog.String("filename", filename))
	return nil
}

// Prune deletes the oldest backups beyond the retention count.
func (s *Service) Prune() error {
	if s.retention < 1 {
		return nil
	}
	backups, err := s.List()
	if err != nil {
		return err
	}
	if len(backups) <= s.retention {
		return nil
	}
	for _, b := range backups[s.retention:] {
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Debug("pruned old backup", slog.String("filename", b.Filename))
	}
	return nil
}

// StartScheduler backs up and prunes on a fixed interval until the context
// is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error("scheduled backup failed", slog.Any("error", err))
				continue
			}
			if err := s.Prune(); err != nil {
				s.logger.Error("backup prune failed", slog.Any("error", err))
			}
		}
	}
}

// IsValidFilename reports whether filename names a backup file and carries
// no path elements.
func IsValidFilename(filename string) bool {
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return false
	}
	return backupPattern.MatchString(filename)
}
