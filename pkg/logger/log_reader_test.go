package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeEvents(t *testing.T, dir string) {
	t.Helper()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	ml.LogDownloadEvent("success", zap.String("video_id", "abc"), zap.Int("chunks", 50))
	ml.LogDownloadEvent("failed", zap.String("video_id", "def"), zap.Int("chunks", 3))
	ml.LogDownloadEvent("success", zap.String("video_id", "ghi"), zap.Int("chunks", 12))
	require.NoError(t, ml.Close())
}

func TestLogReader_ReadLogs(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir)
	reader := NewLogReader(dir)

	entries, err := reader.ReadLogs(CategoryDownload, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "success", first.Message)
	assert.Equal(t, "info", first.Level)
	assert.Equal(t, CategoryDownload, first.Category)
	assert.NotEmpty(t, first.Timestamp)
	assert.Equal(t, "abc", first.Fields["video_id"])
	assert.Equal(t, float64(50), first.Fields["chunks"])

	last, err := reader.ReadLogs(CategoryDownload, time.Now(), 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "def", last[0].Fields["video_id"])
	assert.Equal(t, "ghi", last[1].Fields["video_id"])
}

func TestLogReader_MissingFile(t *testing.T) {
	entries, err := NewLogReader(t.TempDir()).ReadLogs(CategorySession, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogReader_NonJSONLine(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	path := reader.LogPath(CategoryError, time.Now())
	require.NoError(t, os.WriteFile(path, []byte("plain text line\n\n"), 0644))

	entries, err := reader.ReadLogs(CategoryError, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plain text line", entries[0].Message)
	assert.Equal(t, CategoryError, entries[0].Category)
}

func TestLogReader_SearchLogs(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir)
	reader := NewLogReader(dir)

	byMessage, err := reader.SearchLogs(CategoryDownload, time.Now(), "FAILED", 0)
	require.NoError(t, err)
	require.Len(t, byMessage, 1)
	assert.Equal(t, "def", byMessage[0].Fields["video_id"])

	byField, err := reader.SearchLogs(CategoryDownload, time.Now(), "ghi", 0)
	require.NoError(t, err)
	require.Len(t, byField, 1)

	limited, err := reader.SearchLogs(CategoryDownload, time.Now(), "success", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "ghi", limited[0].Fields["video_id"])
}

func TestLogReader_LogPathMatchesWriter(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	defer ml.Close()

	day := time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local)
	assert.Equal(t, ml.CategoryLogPath(CategorySession, day), NewLogReader(dir).LogPath(CategorySession, day))
	assert.Equal(t, filepath.Join(dir, "session-20240309.log"), NewLogReader(dir).LogPath(CategorySession, day))
}

func TestLogReader_TailLogs(t *testing.T) {
	defer func(d time.Duration) { tailPollInterval = d }(tailPollInterval)
	tailPollInterval = 10 * time.Millisecond

	dir := t.TempDir()
	reader := NewLogReader(dir)
	path := reader.LogPath(CategorySession, time.Now())
	require.NoError(t, os.WriteFile(path, []byte(`{"ts":"old","level":"info","msg":"before tail"}`+"\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan LogEntry)
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(ctx, CategorySession, entries) }()

	// keep appending until the tail has attached and reports a line
	stopWriting := make(chan struct{})
	go func() {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		defer f.Close()
		for i := 0; ; i++ {
			select {
			case <-stopWriting:
				return
			case <-time.After(20 * time.Millisecond):
				fmt.Fprintf(f, `{"ts":"new","level":"info","msg":"refreshed","n":%d}`+"\n", i)
			}
		}
	}()

	select {
	case entry := <-entries:
		assert.Equal(t, "refreshed", entry.Message)
		assert.Equal(t, "new", entry.Timestamp)
	case <-time.After(5 * time.Second):
		t.Fatal("no entry received from tail")
	}
	close(stopWriting)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not stop after cancel")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("error")
	require.NoError(t, err)
	assert.Equal(t, CategoryError, c)

	_, err = ParseCategory("queue")
	assert.Error(t, err)
}
