package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
	"github.com/yourusername/destream-go/pkg/logger"
)

// SessionRefresher obtains a new session scoped to a video page
type SessionRefresher interface {
	Refresh(ctx context.Context, videoID string) (domain.Session, error)
}

// Notifier reports per-video outcomes to the desktop
type Notifier interface {
	NotifyVideoCompleted(title string)
	NotifyVideoFailed(title string, err error)
}

// InterruptSource delivers user interrupts while a download is running
type InterruptSource interface {
	Notify(c chan<- os.Signal)
	Stop(c chan<- os.Signal)
}

type osInterrupts struct{}

func (osInterrupts) Notify(c chan<- os.Signal) { signal.Notify(c, os.Interrupt, syscall.SIGTERM) }
func (osInterrupts) Stop(c chan<- os.Signal)   { signal.Stop(c) }

// OSInterrupts listens for SIGINT and SIGTERM
func OSInterrupts() InterruptSource {
	return osInterrupts{}
}

// DownloadOptions is the per-batch download policy
type DownloadOptions struct {
	SkipExisting    bool
	KeepSession     bool
	NoCleanup       bool
	Captions        bool
	Format          string
	VideoCodec      string
	AudioCodec      string
	SecondsPerChunk float64
}

// DownloadOptionsFromConfig builds the batch policy from configuration
func DownloadOptionsFromConfig(config *domain.Config) DownloadOptions {
	return DownloadOptions{
		SkipExisting:    config.Download.SkipExisting,
		KeepSession:     config.Browser.KeepSession,
		NoCleanup:       config.Download.NoCleanup,
		Captions:        config.Download.Captions,
		Format:          config.Download.Format,
		VideoCodec:      config.Download.VideoCodec,
		AudioCodec:      config.Download.AudioCodec,
		SecondsPerChunk: config.Download.SecondsPerChunk,
	}
}

// BatchResult summarises a download run
type BatchResult struct {
	Tasks     []*domain.DownloadTask
	Succeeded int
	Skipped   int
	Failed    int
}

func (r *BatchResult) add(task *domain.DownloadTask) {
	r.Tasks = append(r.Tasks, task)
	switch task.Outcome {
	case domain.OutcomeSuccess:
		r.Succeeded++
	case domain.OutcomeSkipped:
		r.Skipped++
	case domain.OutcomeFailed:
		r.Failed++
	}
}

// DownloadManager runs resolved videos through the muxer one at a time
type DownloadManager struct {
	muxer     domain.Muxer
	refresher SessionRefresher
	progress  domain.ProgressFactory
	history   domain.HistoryRepository
	notifier  Notifier
	signals   InterruptSource
	options   DownloadOptions
	logger    *zap.Logger
	events    *logger.LoggerAdapter
}

// NewDownloadManager creates a new download manager. history, notifier and
// events may be nil.
func NewDownloadManager(
	muxer domain.Muxer,
	refresher SessionRefresher,
	progress domain.ProgressFactory,
	history domain.HistoryRepository,
	notifier Notifier,
	signals InterruptSource,
	options DownloadOptions,
	log *zap.Logger,
	events *logger.LoggerAdapter,
) *DownloadManager {
	if log == nil {
		log = zap.NewNop()
	}
	if signals == nil {
		signals = OSInterrupts()
	}
	return &DownloadManager{
		muxer:     muxer,
		refresher: refresher,
		progress:  progress,
		history:   history,
		notifier:  notifier,
		signals:   signals,
		options:   options,
		logger:    log,
		events:    events,
	}
}

// Run downloads videos in order. The first failure or interrupt stops the
// batch; videos after it are not attempted.
func (dm *DownloadManager) Run(ctx context.Context, videos []domain.Video, session domain.Session) (*BatchResult, error) {
	result := &BatchResult{}
	current := session

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: %v", domain.ErrInterrupted, err)
		}

		task, next, err := dm.ProcessVideo(ctx, i, video, current)
		if task != nil {
			result.add(task)
			dm.record(task)
		}
		if err != nil {
			return result, err
		}
		current = next
	}

	dm.logger.Info("Batch finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// ProcessVideo downloads the video at position index of the batch. It
// returns the session the next video should start from.
func (dm *DownloadManager) ProcessVideo(ctx context.Context, index int, video domain.Video, session domain.Session) (*domain.DownloadTask, domain.Session, error) {
	if err := video.Validate(); err != nil {
		return nil, session, fmt.Errorf("%w: %v", domain.ErrInvalidVideo, err)
	}

	if dm.options.SkipExisting && fileExists(video.OutPath) {
		task := domain.NewDownloadTask(index, video, session)
		task.MarkSkipped()
		dm.logger.Info("Output already exists, skipping",
			zap.String("video_id", video.ID),
			zap.String("path", video.OutPath))
		return task, session, nil
	}

	if dm.options.KeepSession && index > 0 {
		refreshed, err := dm.refresher.Refresh(ctx, video.ID)
		if err != nil {
			task := domain.NewDownloadTask(index, video, session)
			task.MarkFailed(err)
			return task, session, fmt.Errorf("refresh session for %s: %w", video.ID, err)
		}
		session = refreshed
	}

	task := domain.NewDownloadTask(index, video, session)
	dm.logger.Info("Downloading video",
		zap.String("task_id", task.ID),
		zap.String("video_id", video.ID),
		zap.String("title", video.Title),
		zap.String("path", video.OutPath),
		zap.Int("total_chunks", video.TotalChunks))

	err := dm.mux(ctx, task)
	return task, session, err
}

// BuildJob turns a task into the muxer's parameter set
func (dm *DownloadManager) BuildJob(task *domain.DownloadTask) domain.MuxJob {
	headers := map[string]string{"Authorization": task.Session.AuthorizationHeader()}

	job := &domain.MuxJob{}
	job.AddInput(domain.MuxInput{URL: task.Video.PlaybackURL, Headers: headers})
	if dm.options.Captions && task.Video.HasCaptions() {
		job.AddInput(domain.MuxInput{URL: task.Video.CaptionsURL, Headers: headers})
	}
	job.AddOutput(domain.MuxOutput{
		Path:       task.Video.OutPath,
		Format:     dm.options.Format,
		VideoCodec: dm.options.VideoCodec,
		AudioCodec: dm.options.AudioCodec,
	})
	return *job
}

// mux runs one muxing process and consumes its events until the terminal one
func (dm *DownloadManager) mux(ctx context.Context, task *domain.DownloadTask) error {
	// A file we did not create is never ours to remove
	owned := !fileExists(task.Video.OutPath)

	bar := dm.progress.New(task.Video.Title, task.Video.TotalChunks)

	interrupts := make(chan os.Signal, 1)
	dm.signals.Notify(interrupts)
	defer dm.signals.Stop(interrupts)

	muxCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := dm.muxer.Spawn(muxCtx, dm.BuildJob(task))
	if err != nil {
		dm.cleanup(task, bar, owned)
		task.MarkFailed(fmt.Errorf("%w: %v", domain.ErrMuxFailed, err))
		return task.Err
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				dm.cleanup(task, bar, owned)
				task.MarkFailed(fmt.Errorf("%w: process exited without a result", domain.ErrMuxFailed))
				return task.Err
			}

			switch ev.Kind {
			case domain.MuxProgress:
				dm.advance(task, bar, ev)

			case domain.MuxSuccess:
				task.MarkSuccess()
				bar.Set(task.Progress, 0)
				bar.Finish()
				dm.logger.Info("Download completed",
					zap.String("video_id", task.Video.ID),
					zap.String("path", task.Video.OutPath))
				return nil

			case domain.MuxError:
				dm.cleanup(task, bar, owned)
				task.MarkFailed(fmt.Errorf("%w: %v", domain.ErrMuxFailed, ev.Err))
				return task.Err
			}

		case sig := <-interrupts:
			return dm.abort(task, bar, owned, cancel, events, fmt.Errorf("%w: received %s", domain.ErrInterrupted, sig))

		case <-ctx.Done():
			return dm.abort(task, bar, owned, cancel, events, fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err()))
		}
	}
}

// advance applies a progress event, ignoring unparseable or stale timemarks
func (dm *DownloadManager) advance(task *domain.DownloadTask, bar domain.ProgressIndicator, ev domain.MuxEvent) {
	elapsed, err := domain.ParseTimemark(ev.Timemark)
	if err != nil {
		dm.logger.Debug("Ignoring progress event", zap.String("timemark", ev.Timemark), zap.Error(err))
		return
	}
	if task.Advance(domain.ElapsedToChunks(elapsed, dm.options.SecondsPerChunk)) {
		bar.Set(task.Progress, ev.Kbps)
	}
}

// abort kills the muxing process, waits for it to exit and cleans up
func (dm *DownloadManager) abort(task *domain.DownloadTask, bar domain.ProgressIndicator, owned bool, cancel context.CancelFunc, events <-chan domain.MuxEvent, cause error) error {
	dm.logger.Warn("Download interrupted", zap.String("video_id", task.Video.ID))
	cancel()
	for range events {
	}
	dm.cleanup(task, bar, owned)
	task.MarkFailed(cause)
	return task.Err
}

// cleanup stops the progress display and removes the partial output
func (dm *DownloadManager) cleanup(task *domain.DownloadTask, bar domain.ProgressIndicator, owned bool) {
	bar.Stop()

	if dm.options.NoCleanup || !owned {
		return
	}
	if err := os.Remove(task.Video.OutPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		dm.logger.Warn("Failed to remove partial output",
			zap.String("path", task.Video.OutPath),
			zap.Error(err))
		return
	}
	dm.logger.Debug("Removed partial output", zap.String("path", task.Video.OutPath))
}

// record persists the task outcome and reports it
func (dm *DownloadManager) record(task *domain.DownloadTask) {
	if dm.history != nil {
		if err := dm.history.Save(task.Record()); err != nil {
			dm.logger.Error("Failed to save download history", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("task_id", task.ID),
		zap.String("video_id", task.Video.ID),
		zap.String("path", task.Video.OutPath),
		zap.Int("chunks", task.Progress),
		zap.Int("total_chunks", task.Video.TotalChunks),
	}
	dm.events.LogDownloadEvent(string(task.Outcome), fields...)
	if task.Err != nil {
		dm.events.LogAppError("download_failed", append(fields, zap.Error(task.Err))...)
	}

	if dm.notifier != nil {
		switch task.Outcome {
		case domain.OutcomeSuccess:
			dm.notifier.NotifyVideoCompleted(task.Video.Title)
		case domain.OutcomeFailed:
			dm.notifier.NotifyVideoFailed(task.Video.Title, task.Err)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
