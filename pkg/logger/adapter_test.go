package logger

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerAdapter_NilIsSafe(t *testing.T) {
	var la *LoggerAdapter
	la.LogSessionEvent("session_acquired")
	la.LogDownloadEvent("success")
	la.LogAppError("download_failed")
	assert.NoError(t, la.Sync())
	assert.NoError(t, la.Close())
}

func TestLoggerAdapter_FallsBackToConsole(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	la := NewLoggerAdapter(nil, zap.New(core))

	la.LogDownloadEvent("success", zap.String("video_id", "abc"))
	la.LogAppError("download_failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "success", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "download", entries[0].ContextMap()["category"])
	assert.Equal(t, "abc", entries[0].ContextMap()["video_id"])
	assert.Equal(t, "error", entries[1].ContextMap()["category"])
}

func TestLoggerAdapter_RoutesToCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	la := NewLoggerAdapter(ml, zap.New(core))
	la.LogSessionEvent("session_acquired", zap.String("url", "https://web.microsoftstream.com/"))
	require.NoError(t, la.Close())

	assert.Zero(t, logs.Len())
	data, err := os.ReadFile(ml.CategoryLogPath(CategorySession, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session_acquired"`)
}
