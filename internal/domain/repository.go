package domain

// SessionStore persists the session between runs
type SessionStore interface {
	// Read returns the cached session. A missing, corrupt or expiring cache
	// yields ok=false; Read never fails.
	Read() (session Session, ok bool)

	// Write persists the session synchronously
	Write(session Session) error
}

// HistoryRepository defines the interface for download history persistence
type HistoryRepository interface {
	// Save inserts or updates a record
	Save(record *DownloadRecord) error

	// FindByVideoID finds all records for a video, newest first
	FindByVideoID(videoID string) ([]*DownloadRecord, error)

	// FindRecent returns the newest records up to limit
	FindRecent(limit int) ([]*DownloadRecord, error)

	// GetStats returns counts per outcome
	GetStats() (*HistoryStats, error)
}

// HistoryStats represents download history statistics
type HistoryStats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
}
