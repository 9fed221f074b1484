package infrastructure

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yourusername/destream-go/internal/domain"
)

const (
	// textProgressInterval throttles degraded-mode progress lines
	textProgressInterval = 5 * time.Second
	maxTitleWidth        = 32
)

// TerminalProgress implements domain.ProgressFactory. It draws a progress bar
// when the terminal reports a width and falls back to periodic log lines
// when it does not.
type TerminalProgress struct {
	out             io.Writer
	width           func() (int, error)
	secondsPerChunk float64
	interval        time.Duration
	logger          *zap.Logger
}

// NewTerminalProgress creates a progress factory drawing to out
func NewTerminalProgress(out *os.File, secondsPerChunk float64, log *zap.Logger) *TerminalProgress {
	if log == nil {
		log = zap.NewNop()
	}
	return &TerminalProgress{
		out: out,
		width: func() (int, error) {
			w, _, err := term.GetSize(int(out.Fd()))
			return w, err
		},
		secondsPerChunk: secondsPerChunk,
		interval:        textProgressInterval,
		logger:          log,
	}
}

// New creates an indicator scaled to total chunks
func (p *TerminalProgress) New(title string, total int) domain.ProgressIndicator {
	width, err := p.width()
	if err != nil || width <= 0 {
		p.logger.Debug("Terminal width unavailable, using text progress", zap.Error(err))
		return &textProgress{
			title:           title,
			total:           total,
			secondsPerChunk: p.secondsPerChunk,
			interval:        p.interval,
			logger:          p.logger,
		}
	}

	label := truncateString(title, maxTitleWidth)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(barWidth(width, len([]rune(label)))),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &barProgress{bar: bar, label: label}
}

// barWidth leaves room for the label, counters and time estimate
func barWidth(columns, labelWidth int) int {
	w := columns - labelWidth - 40
	if w < 10 {
		return 10
	}
	if w > 60 {
		return 60
	}
	return w
}

type barProgress struct {
	bar   *progressbar.ProgressBar
	label string
}

func (b *barProgress) Set(chunks int, kbps float64) {
	if kbps > 0 {
		b.bar.Describe(fmt.Sprintf("%s %6.0f kbps", b.label, kbps))
	}
	_ = b.bar.Set(chunks)
}

func (b *barProgress) Finish() { _ = b.bar.Finish() }

func (b *barProgress) Stop() { _ = b.bar.Exit() }

// textProgress logs position and speed at most once per interval
type textProgress struct {
	mu              sync.Mutex
	title           string
	total           int
	secondsPerChunk float64
	interval        time.Duration
	lastLog         time.Time
	logger          *zap.Logger
}

func (t *textProgress) Set(chunks int, kbps float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if !t.lastLog.IsZero() && now.Sub(t.lastLog) < t.interval {
		return
	}
	t.lastLog = now

	position := time.Duration(float64(chunks) * t.secondsPerChunk * float64(time.Second))
	t.logger.Info("Download progress",
		zap.String("title", t.title),
		zap.Int("chunk", chunks),
		zap.Int("total_chunks", t.total),
		zap.String("position", position.String()),
		zap.Float64("kbps", kbps),
		zap.String("percent", fmt.Sprintf("%.1f%%", 100*float64(chunks)/float64(t.total))))
}

func (t *textProgress) Finish() {
	t.logger.Info("Download progress complete", zap.String("title", t.title), zap.Int("total_chunks", t.total))
}

func (t *textProgress) Stop() {
	t.logger.Info("Download progress stopped", zap.String("title", t.title))
}
