package domain

import (
	"fmt"
	"strings"
	"time"
)

// Video is the resolved descriptor for one stream. It is created once by the
// metadata resolver and consumed exactly once by the download orchestrator.
type Video struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	PlaybackURL    string        `json:"playback_url"` // HLS manifest
	PosterImageURL string        `json:"poster_image_url,omitempty"`
	CaptionsURL    string        `json:"captions_url,omitempty"`
	OutPath        string        `json:"out_path"`
	TotalChunks    int           `json:"total_chunks"`
	Duration       time.Duration `json:"duration"`
	PublishDate    time.Time     `json:"publish_date"`
}

// Validate checks the invariants the orchestrator relies on
func (v Video) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("video: id is empty")
	}
	if strings.TrimSpace(v.PlaybackURL) == "" {
		return fmt.Errorf("video %s: playback url is empty", v.ID)
	}
	if strings.TrimSpace(v.OutPath) == "" {
		return fmt.Errorf("video %s: output path is empty", v.ID)
	}
	if v.TotalChunks <= 0 {
		return fmt.Errorf("video %s: total chunks must be positive, got %d", v.ID, v.TotalChunks)
	}
	return nil
}

// HasCaptions reports whether a captions track was resolved
func (v Video) HasCaptions() bool {
	return v.CaptionsURL != ""
}
