package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFileAtomic copies src to target without ever exposing a partially
// written target. The data is streamed into <target>.tmp and fsynced, an
// existing target is moved aside to <target>.bak, and the temp file is
// renamed into place. The source's permission bits are preserved.
func CopyFileAtomic(src, target string) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is a listed screenshot path
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close() //nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}
	return WriteReaderAtomic(target, in, info.Mode().Perm())
}

// WriteReaderAtomic streams r to target using the tmp/bak/rename pattern.
// The parent directory is created when missing.
func WriteReaderAtomic(target string, r io.Reader, perm os.FileMode) error {
	tmpPath := target + ".tmp"
	bakPath := target + ".bak"

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // G301: user-facing destination directory
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := writeSynced(tmpPath, r, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}

	if _, err := os.Stat(target); err == nil {
		if err := renameSafe(target, bakPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up existing file: %w", err)
		}
	}

	if err := renameSafe(tmpPath, target); err != nil {
		if _, bakErr := os.Stat(bakPath); bakErr == nil {
			_ = renameSafe(bakPath, target)
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp to target: %w", err)
	}

	_ = os.Remove(bakPath)
	return nil
}

func writeSynced(path string, r io.Reader, perm os.FileMode) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // G304: derived from target
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// renameSafe attempts os.Rename first, then falls back to copy+delete for
// cross-device moves.
func renameSafe(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	if copyErr := copyFile(oldPath, newPath); copyErr != nil {
		return fmt.Errorf("copy fallback: %w (rename error: %w)", copyErr, err)
	}
	_ = os.Remove(oldPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: internal temp/backup path
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return err
	}
	return writeSynced(dst, in, info.Mode().Perm())
}
