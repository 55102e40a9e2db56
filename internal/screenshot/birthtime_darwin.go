//go:build darwin

package screenshot

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// CreationTime returns the file's birth time, falling back to the
// modification time when the stat call fails.
func CreationTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	bt := time.Unix(st.Birthtimespec.Unix())
	if bt.IsZero() || bt.Unix() == 0 {
		return info.ModTime()
	}
	return bt
}
