package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskOutcome represents the current state of a download task
type TaskOutcome string

const (
	OutcomePending TaskOutcome = "pending"
	OutcomeSuccess TaskOutcome = "success"
	OutcomeFailed  TaskOutcome = "failed"
	OutcomeSkipped TaskOutcome = "skipped"
)

// DownloadTask is the per-video execution context. It holds the session
// snapshot the task started with and the chunk progress of the muxer.
type DownloadTask struct {
	ID         string
	Index      int
	Video      Video
	Session    Session
	Progress   int
	Outcome    TaskOutcome
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewDownloadTask creates a pending task for the video at position index of the batch
func NewDownloadTask(index int, video Video, session Session) *DownloadTask {
	return &DownloadTask{
		ID:        uuid.New().String(),
		Index:     index,
		Video:     video,
		Session:   session,
		Outcome:   OutcomePending,
		StartedAt: time.Now(),
	}
}

// Advance moves progress to chunks, clamped to [Progress, TotalChunks].
// It returns true when the progress changed.
func (t *DownloadTask) Advance(chunks int) bool {
	if chunks > t.Video.TotalChunks {
		chunks = t.Video.TotalChunks
	}
	if chunks <= t.Progress {
		return false
	}
	t.Progress = chunks
	return true
}

// MarkSuccess marks the task as completed and fills the progress
func (t *DownloadTask) MarkSuccess() {
	t.Progress = t.Video.TotalChunks
	t.Outcome = OutcomeSuccess
	t.FinishedAt = time.Now()
}

// MarkFailed marks the task as failed
func (t *DownloadTask) MarkFailed(err error) {
	t.Outcome = OutcomeFailed
	t.Err = err
	t.FinishedAt = time.Now()
}

// MarkSkipped marks the task as skipped
func (t *DownloadTask) MarkSkipped() {
	t.Outcome = OutcomeSkipped
	t.FinishedAt = time.Now()
}

// IsTerminal checks if the task reached a terminal outcome
func (t *DownloadTask) IsTerminal() bool {
	return t.Outcome != OutcomePending
}

// Record converts the task into a persistable history record
func (t *DownloadTask) Record() *DownloadRecord {
	r := &DownloadRecord{
		ID:          t.ID,
		VideoID:     t.Video.ID,
		Title:       t.Video.Title,
		OutPath:     t.Video.OutPath,
		Outcome:     t.Outcome,
		Chunks:      t.Progress,
		TotalChunks: t.Video.TotalChunks,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
	}
	if t.Err != nil {
		r.ErrorMessage = t.Err.Error()
	}
	return r
}

// DownloadRecord is the persisted outcome of one download task
type DownloadRecord struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	VideoID      string      `json:"video_id" gorm:"not null;index"`
	Title        string      `json:"title"`
	OutPath      string      `json:"out_path"`
	Outcome      TaskOutcome `json:"outcome" gorm:"not null;index"`
	Chunks       int         `json:"chunks"`
	TotalChunks  int         `json:"total_chunks"`
	ErrorMessage string      `json:"error_message,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (DownloadRecord) TableName() string {
	return "download_history"
}
