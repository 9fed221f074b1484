package logger

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{Level: "info"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logs_dir")
}

func TestMultiLogger_WritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogSessionEvent("session_cached", zap.String("source", "cache"))
	ml.LogDownloadEvent("video_completed", zap.String("video_id", "abc"))
	ml.LogAppError("mux failed", zap.String("video_id", "abc"))
	require.NoError(t, ml.Close())

	now := time.Now()
	session, err := os.ReadFile(ml.CategoryLogPath(CategorySession, now))
	require.NoError(t, err)
	assert.Contains(t, string(session), `"msg":"session_cached"`)

	download, err := os.ReadFile(ml.CategoryLogPath(CategoryDownload, now))
	require.NoError(t, err)
	assert.Contains(t, string(download), `"video_id":"abc"`)

	errs, err := os.ReadFile(ml.CategoryLogPath(CategoryError, now))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errs), "\n"))
}

func TestNew_FallsBackToInfoLevel(t *testing.T) {
	l, err := New(Config{Level: "loud", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
