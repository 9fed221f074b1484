package infrastructure

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
)

// Preflight runs the environment checks that must pass before a download run
type Preflight struct {
	config *domain.DownloadConfig
	logger *zap.Logger

	elevated func() (bool, error)
	lookPath func(string) (string, error)
}

// NewPreflight creates the preflight checks for the current platform
func NewPreflight(config *domain.DownloadConfig, log *zap.Logger) *Preflight {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preflight{
		config:   config,
		logger:   log,
		elevated: isElevated,
		lookPath: exec.LookPath,
	}
}

// CheckPrivileges refuses to run as root or from an elevated shell unless allowed
func (p *Preflight) CheckPrivileges() error {
	elevated, err := p.elevated()
	if err != nil {
		p.logger.Warn("Could not determine privilege level", zap.Error(err))
		return nil
	}
	if !elevated {
		return nil
	}
	if p.config.AllowElevated {
		p.logger.Warn("Running with elevated privileges")
		return nil
	}
	return domain.ErrElevatedShell
}

// CheckFFmpeg verifies the ffmpeg binary can be found and returns its path
func (p *Preflight) CheckFFmpeg() (string, error) {
	path, err := p.lookPath(p.config.FFmpegBinary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrMissingFFmpeg, p.config.FFmpegBinary, err)
	}
	p.logger.Debug("Found ffmpeg", zap.String("path", path))
	return path, nil
}

// Run performs every check in order
func (p *Preflight) Run() (string, error) {
	if err := p.CheckPrivileges(); err != nil {
		return "", err
	}
	return p.CheckFFmpeg()
}
