package screenshot

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Locator lists screenshot files in a single directory. It does not recurse.
type Locator struct {
	Dir     string
	Matcher Matcher
	Logger  *slog.Logger

	// createdAt resolves a file's creation time. Nil means CreationTime.
	createdAt func(path string, info fs.FileInfo) time.Time
}

// NewLocator returns a Locator for dir. A nil matcher selects StrictRule.
func NewLocator(dir string, m Matcher, logger *slog.Logger) *Locator {
	if m == nil {
		m = StrictRule{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		Dir:     dir,
		Matcher: m,
		Logger:  logger.With("component", "locator"),
	}
}

// List returns matching files ordered by creation time, newest first. Files
// with equal creation times are ordered by name. A limit of zero or less
// returns every match.
//
// An unreadable directory is logged and yields an empty result. Files that
// disappear while the listing runs are skipped.
func (l *Locator) List(ctx context.Context, limit int) []Record {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		l.logger().Warn("reading screenshot directory", "dir", l.Dir, "error", err)
		return []Record{}
	}

	created := l.createdAt
	if created == nil {
		created = CreationTime
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return []Record{}
		}
		if e.IsDir() || !l.matcher().Match(e.Name()) {
			continue
		}
		path := filepath.Join(l.Dir, e.Name())
		info, err := os.Stat(path)
		if err != nil {
			l.logger().Debug("skipping file", "path", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}
		records = append(records, Record{
			FilePath:     path,
			FileName:     e.Name(),
			CreationTime: created(path, info).UTC(),
		})
	}

	SortRecords(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// SortRecords orders records newest first, breaking ties by file name.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.After(b.CreationTime)
		}
		return a.FileName < b.FileName
	})
}

// Match reports whether name is a screenshot under the locator's rule.
func (l *Locator) Match(name string) bool {
	return l.matcher().Match(name)
}

func (l *Locator) matcher() Matcher {
	if l.Matcher == nil {
		return StrictRule{}
	}
	return l.Matcher
}

func (l *Locator) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}
