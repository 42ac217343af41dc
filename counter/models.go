package counter

import "time"

// Download is one tallied artifact. Filename is the basename of the
// downloaded file as it appeared in the access log; two request paths with
// the same basename share one row.
type Download struct {
	ID       uint   `gorm:"primaryKey"`
	Filename string `gorm:"uniqueIndex;not null;size:255"`
	// Timestamp is the most recently accepted event for this filename,
	// wall-clock as written in the log (offset discarded).
	Timestamp time.Time `gorm:"not null"`
	Total     int64     `gorm:"default:0"`
}
