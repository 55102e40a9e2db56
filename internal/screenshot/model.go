package screenshot

import "time"

// Record is a screenshot file discovered on disk. Records are rebuilt from
// filesystem metadata on every listing and never mutated afterwards.
type Record struct {
	FilePath     string    `json:"filePath"`
	FileName     string    `json:"fileName"`
	CreationTime time.Time `json:"creationTime"`
}

// Entry is a Record as tracked by the networked feed.
type Entry struct {
	ID string `json:"id"`
	Record
	FirstSeen time.Time `json:"firstSeen"`
}
