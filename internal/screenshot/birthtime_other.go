//go:build !darwin && !linux

package screenshot

import (
	"io/fs"
	"time"
)

// CreationTime returns the modification time; birth time is not available
// on this platform.
func CreationTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
