package screenshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sebfried/menubarmaid/internal/filesystem"
)

// CopyResult is the outcome of copying one record.
type CopyResult struct {
	Record Record
	Dest   string
	Err    error
}

// CopyReport collects the results of CopyTo.
type CopyReport struct {
	// DirErr is set when the destination directory could not be created.
	DirErr  error
	Results []CopyResult
}

// Failed reports whether any copy failed.
func (r CopyReport) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// CopyTo copies each record's file into dest, creating dest when missing.
// Every copy is attempted even after a failure, including when dest itself
// could not be created.
func CopyTo(records []Record, dest string) CopyReport {
	var report CopyReport
	if err := os.MkdirAll(dest, 0o755); err != nil { //nolint:gosec // G301: user-chosen destination
		report.DirErr = fmt.Errorf("creating destination %s: %w", dest, err)
	}

	report.Results = make([]CopyResult, 0, len(records))
	for _, rec := range records {
		target := filepath.Join(dest, rec.FileName)
		res := CopyResult{Record: rec, Dest: target}
		if err := filesystem.CopyFileAtomic(rec.FilePath, target); err != nil {
			res.Err = err
		}
		report.Results = append(report.Results, res)
	}
	return report
}
