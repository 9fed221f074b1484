package domain

import "context"

// MuxInput describes one input of the muxing process
type MuxInput struct {
	URL     string
	Headers map[string]string
}

// MuxOutput describes the output of the muxing process
type MuxOutput struct {
	Path       string
	Format     string
	VideoCodec string // "none" drops video
	AudioCodec string // "none" drops audio
}

// MuxJob is the full parameter set of one muxing process
type MuxJob struct {
	Inputs []MuxInput
	Output MuxOutput
}

// AddInput appends an input
func (j *MuxJob) AddInput(in MuxInput) *MuxJob {
	j.Inputs = append(j.Inputs, in)
	return j
}

// AddOutput sets the output
func (j *MuxJob) AddOutput(out MuxOutput) *MuxJob {
	j.Output = out
	return j
}

// MuxEventKind tags a muxer event
type MuxEventKind int

const (
	MuxProgress MuxEventKind = iota
	MuxSuccess
	MuxError
)

func (k MuxEventKind) String() string {
	switch k {
	case MuxProgress:
		return "progress"
	case MuxSuccess:
		return "success"
	case MuxError:
		return "error"
	default:
		return "unknown"
	}
}

// MuxEvent is one event from the muxing process
type MuxEvent struct {
	Kind     MuxEventKind
	Timemark string  // progress only
	Kbps     float64 // progress only, 0 when unknown
	Err      error   // error only
}

// Muxer spawns the external muxing process. The returned channel carries zero
// or more MuxProgress events followed by exactly one MuxSuccess or MuxError,
// then it is closed. Cancelling ctx kills the process.
type Muxer interface {
	Spawn(ctx context.Context, job MuxJob) (<-chan MuxEvent, error)
}

// ProgressIndicator is a bounded progress display for one download
type ProgressIndicator interface {
	Set(chunks int, kbps float64)
	Finish()
	Stop()
}

// ProgressFactory creates an indicator scaled to total chunks
type ProgressFactory interface {
	New(title string, total int) ProgressIndicator
}
