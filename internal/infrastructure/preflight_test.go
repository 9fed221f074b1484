package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/destream-go/internal/domain"
)

func testPreflight(config *domain.DownloadConfig, elevated bool, ffmpegPath string) *Preflight {
	p := NewPreflight(config, nil)
	p.elevated = func() (bool, error) { return elevated, nil }
	p.lookPath = func(name string) (string, error) {
		if ffmpegPath == "" {
			return "", errors.New("executable file not found in $PATH")
		}
		return ffmpegPath, nil
	}
	return p
}

func TestPreflight_Run(t *testing.T) {
	p := testPreflight(&domain.DownloadConfig{FFmpegBinary: "ffmpeg"}, false, "/usr/bin/ffmpeg")

	path, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffmpeg", path)
}

func TestPreflight_Elevated(t *testing.T) {
	p := testPreflight(&domain.DownloadConfig{FFmpegBinary: "ffmpeg"}, true, "/usr/bin/ffmpeg")

	_, err := p.Run()
	assert.ErrorIs(t, err, domain.ErrElevatedShell)
	assert.Equal(t, domain.ExitElevatedShell, domain.ExitCodeFor(err))

	p.config.AllowElevated = true
	_, err = p.Run()
	assert.NoError(t, err)
}

func TestPreflight_MissingFFmpeg(t *testing.T) {
	p := testPreflight(&domain.DownloadConfig{FFmpegBinary: "ffmpeg"}, false, "")

	_, err := p.Run()
	assert.ErrorIs(t, err, domain.ErrMissingFFmpeg)
	assert.Equal(t, domain.ExitMissingFFmpeg, domain.ExitCodeFor(err))
}
