package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscapeCommand(t *testing.T) {
	tests := []struct {
		name     string
		binary   string
		args     []string
		expected string
	}{
		{
			name:     "simple args",
			binary:   "ffmpeg",
			args:     []string{"-f", "mkv", "/tmp/out.mkv"},
			expected: "ffmpeg -f mkv /tmp/out.mkv",
		},
		{
			name:     "path with spaces",
			binary:   "ffmpeg",
			args:     []string{"/tmp/path with spaces.mkv"},
			expected: "ffmpeg '/tmp/path with spaces.mkv'",
		},
		{
			name:     "path with single quote",
			binary:   "ffmpeg",
			args:     []string{"/tmp/it's.mkv"},
			expected: `ffmpeg '/tmp/it'"'"'s.mkv'`,
		},
		{
			name:     "empty argument",
			binary:   "ffmpeg",
			args:     []string{""},
			expected: "ffmpeg ''",
		},
		{
			name:     "authorization header is redacted",
			binary:   "ffmpeg",
			args:     []string{"-headers", "Authorization: Bearer eyJ0eXAi.secret.sig\r\n"},
			expected: "ffmpeg -headers 'Authorization: Bearer <redacted>\r\n'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscapeCommand(tt.binary, tt.args...))
		})
	}
}

func TestRedactBearer(t *testing.T) {
	assert.Equal(t, "no token here", RedactBearer("no token here"))
	assert.Equal(t, "Bearer <redacted>", RedactBearer("Bearer abc"))
	assert.Equal(t, "a: Bearer <redacted> b: Bearer <redacted>\n", RedactBearer("a: Bearer x b: Bearer y\n"))
}
