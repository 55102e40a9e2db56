// Package settings is the key/value store behind the settings API, the
// persisted logging configuration, and shortcut usage counters.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Documented keys.
const (
	KeyWindowBounds = "window.bounds"

	KeyLoggingLevel       = "logging.level"
	KeyLoggingFormat      = "logging.format"
	KeyLoggingFilePath    = "logging.file_path"
	KeyLoggingFileMaxSize = "logging.file_max_size_mb"
	KeyLoggingFileMaxKeep = "logging.file_max_files"
	KeyLoggingFileMaxAge  = "logging.file_max_age_days"

	KeyMaintenanceEnabled      = "db_maintenance.enabled"
	KeyMaintenanceInterval     = "db_maintenance.interval_hours"
	KeyMaintenanceLastOptimize = "db_maintenance.last_optimize_at"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("setting not found")

// Service reads and writes settings rows.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

// NewService creates a settings service on an opened, migrated database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return out, nil
}

// Get returns the value stored for key.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return v, nil
}

// GetString returns the value for key, or fallback when missing or empty.
func (s *Service) GetString(ctx context.Context, key, fallback string) string {
	v, err := s.Get(ctx, key)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

// GetInt returns the integer value for key, or fallback when missing or
// unparsable.
func (s *Service) GetInt(ctx context.Context, key string, fallback int) int {
	v, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetBool returns the boolean value for key, or fallback when missing or
// unparsable.
func (s *Service) GetBool(ctx context.Context, key string, fallback bool) bool {
	v, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Set stores one value.
func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts all values in a single transaction.
func (s *Service) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now().UTC().Format(time.RFC3339)
	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, v, now)
		if err != nil {
			return fmt.Errorf("upserting setting %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// Usage is the activation history of one shortcut.
type Usage struct {
	Activations int       `json:"activations"`
	LastUsed    time.Time `json:"lastUsed"`
}

// RecordShortcut increments the activation counter for a menu item.
func (s *Service) RecordShortcut(ctx context.Context, itemID string) error {
	now := s.now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shortcut_usage (item_id, activations, last_used) VALUES (?, 1, ?)
		ON CONFLICT(item_id) DO UPDATE SET activations = activations + 1, last_used = excluded.last_used`,
		itemID, now)
	if err != nil {
		return fmt.Errorf("recording shortcut %s: %w", itemID, err)
	}
	return nil
}

// ShortcutUsage returns the usage of every shortcut activated at least once.
func (s *Service) ShortcutUsage(ctx context.Context) (map[string]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id, activations, last_used FROM shortcut_usage`)
	if err != nil {
		return nil, fmt.Errorf("listing shortcut usage: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]Usage)
	for rows.Next() {
		var id, last string
		var u Usage
		if err := rows.Scan(&id, &u.Activations, &last); err != nil {
			return nil, fmt.Errorf("scanning shortcut usage: %w", err)
		}
		u.LastUsed, _ = time.Parse(time.RFC3339, last)
		out[id] = u
	}
	return out, rows.Err()
}
