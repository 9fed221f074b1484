package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
	"github.com/yourusername/destream-go/pkg/logger"
)

var (
	ffmpegTimeRegex    = regexp.MustCompile(`time=\s*(\S+)`)
	ffmpegBitrateRegex = regexp.MustCompile(`bitrate=\s*([\d.]+)\s*kbits/s`)
)

const (
	// stderrTail is how many non-progress stderr lines are kept for error reports
	stderrTail = 5
	// maxStderrLine bounds a single stderr line; parsing stops past it
	maxStderrLine = 1 << 20
)

// FFmpegMuxer implements domain.Muxer by supervising an ffmpeg process
type FFmpegMuxer struct {
	binary      string
	logger      *zap.Logger
	eventLogger *logger.LoggerAdapter
}

// NewFFmpegMuxer creates a new ffmpeg muxer
func NewFFmpegMuxer(binary string, log *zap.Logger, eventLogger *logger.LoggerAdapter) *FFmpegMuxer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpegMuxer{
		binary:      binary,
		logger:      log,
		eventLogger: eventLogger,
	}
}

// BuildArgs builds the ffmpeg argument list for a job. Headers go before the
// input they apply to; -n makes ffmpeg refuse to overwrite.
func (m *FFmpegMuxer) BuildArgs(job domain.MuxJob) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "info"}

	for _, in := range job.Inputs {
		if len(in.Headers) > 0 {
			args = append(args, "-headers", formatHeaders(in.Headers))
		}
		args = append(args, "-i", in.URL)
	}

	if len(job.Inputs) > 1 {
		for i := range job.Inputs {
			args = append(args, "-map", strconv.Itoa(i))
		}
	}

	args = append(args, codecArgs("v", job.Output.VideoCodec)...)
	args = append(args, codecArgs("a", job.Output.AudioCodec)...)
	if len(job.Inputs) > 1 {
		args = append(args, "-c:s", subtitleCodec(job.Output.Format))
	}

	if job.Output.Format != "" {
		args = append(args, "-f", ffmpegFormat(job.Output.Format))
	}
	args = append(args, "-n", job.Output.Path)
	return args
}

// Spawn starts ffmpeg and returns its event stream. Cancelling ctx kills the
// process; the stream still ends with exactly one terminal event.
func (m *FFmpegMuxer) Spawn(ctx context.Context, job domain.MuxJob) (<-chan domain.MuxEvent, error) {
	if len(job.Inputs) == 0 {
		return nil, fmt.Errorf("mux job has no inputs")
	}
	if job.Output.Path == "" {
		return nil, fmt.Errorf("mux job has no output path")
	}

	args := m.BuildArgs(job)
	cmdLine := ShellEscapeCommand(m.binary, args...)
	m.logger.Debug("Starting ffmpeg", zap.String("command", cmdLine))
	m.eventLogger.LogDownloadEvent("ffmpeg_command", zap.String("command", cmdLine))

	cmd := exec.Command(m.binary, args...)
	setSysProcAttr(cmd)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	events := make(chan domain.MuxEvent, 16)
	go m.supervise(ctx, cmd, stderr, events)
	return events, nil
}

// supervise streams progress from stderr and emits the terminal event
func (m *FFmpegMuxer) supervise(ctx context.Context, cmd *exec.Cmd, stderr io.Reader, events chan<- domain.MuxEvent) {
	defer close(events)

	exited := make(chan struct{})
	go func() {
		if err := killOnCancel(ctx, exited, func() error { return killProcessGroup(cmd) }); err != nil {
			m.logger.Debug("Failed to kill ffmpeg", zap.Error(err))
		}
	}()

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLine)
	scanner.Split(scanLinesCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ev, ok := ParseProgressLine(line); ok {
			events <- ev
			continue
		}
		m.logger.Debug("ffmpeg", zap.String("line", line))
		tail = append(tail, line)
		if len(tail) > stderrTail {
			tail = tail[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		m.logger.Debug("Stopped parsing ffmpeg output", zap.Error(err))
	}
	// ffmpeg blocks on a full pipe, so keep draining until it exits
	_, _ = io.Copy(io.Discard, stderr)

	waitErr := cmd.Wait()
	close(exited)

	switch {
	case ctx.Err() != nil:
		events <- domain.MuxEvent{Kind: domain.MuxError, Err: fmt.Errorf("ffmpeg killed: %w", ctx.Err())}
	case waitErr != nil:
		err := waitErr
		if len(tail) > 0 {
			err = fmt.Errorf("%w: %s", waitErr, tail[len(tail)-1])
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			m.logger.Debug("ffmpeg exited", zap.Int("code", exitErr.ExitCode()), zap.Strings("stderr", tail))
		}
		events <- domain.MuxEvent{Kind: domain.MuxError, Err: err}
	default:
		events <- domain.MuxEvent{Kind: domain.MuxSuccess}
	}
}

// killOnCancel waits for ctx to end or the process to exit, and kills the
// process only if it has not exited yet
func killOnCancel(ctx context.Context, exited <-chan struct{}, kill func() error) error {
	select {
	case <-ctx.Done():
		select {
		case <-exited:
			return nil
		default:
		}
		return kill()
	case <-exited:
		return nil
	}
}

// ParseProgressLine extracts the timemark and bitrate from an ffmpeg status line
func ParseProgressLine(line string) (domain.MuxEvent, bool) {
	match := ffmpegTimeRegex.FindStringSubmatch(line)
	if match == nil {
		return domain.MuxEvent{}, false
	}

	ev := domain.MuxEvent{Kind: domain.MuxProgress, Timemark: match[1]}
	if br := ffmpegBitrateRegex.FindStringSubmatch(line); br != nil {
		if kbps, err := strconv.ParseFloat(br[1], 64); err == nil {
			ev.Kbps = kbps
		}
	}
	return ev, true
}

// scanLinesCR splits on \n and on the bare \r ffmpeg uses to redraw status lines
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func formatHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.String()
}

func codecArgs(stream, codec string) []string {
	switch codec {
	case "":
		return nil
	case "none":
		return []string{"-" + stream + "n"}
	default:
		return []string{"-c:" + stream, codec}
	}
}

// ffmpegFormat maps file extensions onto ffmpeg muxer names
func ffmpegFormat(format string) string {
	if format == "mkv" {
		return "matroska"
	}
	return format
}

func subtitleCodec(format string) string {
	if format == "mp4" || format == "mov" {
		return "mov_text"
	}
	return "webvtt"
}
