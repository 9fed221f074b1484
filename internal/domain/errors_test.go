package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ExitCode
	}{
		{"nil", nil, ExitOK},
		{"unknown", errors.New("boom"), ExitUnhandled},
		{"wrapped mux failure", fmt.Errorf("video abc: %w", ErrMuxFailed), ExitUnknownFFmpegError},
		{"credential timeout", fmt.Errorf("password step: %w", ErrAuthTimeout), ExitNoSessionInfo},
		{"missing credentials", ErrCredentialsRequired, ExitNoSessionInfo},
		{"no session info", ErrNoSessionInfo, ExitNoSessionInfo},
		{"elevated", ErrElevatedShell, ExitElevatedShell},
		{"ffmpeg missing", ErrMissingFFmpeg, ExitMissingFFmpeg},
		{"interrupt wins over mux", fmt.Errorf("%w: %w", ErrInterrupted, ErrMuxFailed), ExitInterrupted},
		{"invalid video", fmt.Errorf("resolve: %w", ErrInvalidVideo), ExitInvalidVideoID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCodeFor(tt.err))
		})
	}
}
