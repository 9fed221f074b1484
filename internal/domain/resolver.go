package domain

import "context"

// MetadataResolver converts video ids into stream descriptors. It returns one
// Video per id in the same order, or fails the whole batch.
type MetadataResolver interface {
	Resolve(ctx context.Context, requests []VideoRequest, session Session, wantCaptions bool) ([]Video, error)
}

// VideoRequest pairs a video id with the directory its output goes to
type VideoRequest struct {
	ID     string
	OutDir string
}
