package settings

import (
	"context"
	"strconv"

	"github.com/sebfried/menubarmaid/internal/logging"
)

// LoggingConfig overlays persisted logging settings on base. Missing or
// invalid values keep the base value.
func (s *Service) LoggingConfig(ctx context.Context, base logging.Config) logging.Config {
	cfg := base
	if v := s.GetString(ctx, KeyLoggingLevel, ""); logging.ValidLevel(v) {
		cfg.Level = v
	}
	if v := s.GetString(ctx, KeyLoggingFormat, ""); logging.ValidFormat(v) {
		cfg.Format = v
	}
	if v, err := s.Get(ctx, KeyLoggingFilePath); err == nil {
		cfg.FilePath = v
	}
	cfg.FileMaxSizeMB = s.GetInt(ctx, KeyLoggingFileMaxSize, cfg.FileMaxSizeMB)
	cfg.FileMaxFiles = s.GetInt(ctx, KeyLoggingFileMaxKeep, cfg.FileMaxFiles)
	cfg.FileMaxAgeDays = s.GetInt(ctx, KeyLoggingFileMaxAge, cfg.FileMaxAgeDays)
	return cfg
}

// SaveLoggingConfig persists cfg so it is re-applied on the next start.
func (s *Service) SaveLoggingConfig(ctx context.Context, cfg logging.Config) error {
	return s.SetMany(ctx, map[string]string{
		KeyLoggingLevel:       cfg.Level,
		KeyLoggingFormat:      cfg.Format,
		KeyLoggingFilePath:    cfg.FilePath,
		KeyLoggingFileMaxSize: strconv.Itoa(cfg.FileMaxSizeMB),
		KeyLoggingFileMaxKeep: strconv.Itoa(cfg.FileMaxFiles),
		KeyLoggingFileMaxAge:  strconv.Itoa(cfg.FileMaxAgeDays),
	})
}
