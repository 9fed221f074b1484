package infrastructure

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTerminalProgress_TextFallback(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &TerminalProgress{
		out:             &bytes.Buffer{},
		width:           func() (int, error) { return 0, errors.New("inappropriate ioctl for device") },
		secondsPerChunk: 6,
		interval:        time.Hour,
		logger:          zap.New(core),
	}

	indicator := p.New("Quarterly Review", 50)
	_, ok := indicator.(*textProgress)
	require.True(t, ok)

	indicator.Set(5, 900)
	indicator.Set(10, 900) // throttled
	indicator.Finish()

	entries := logs.FilterMessage("Download progress").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(5), fields["chunk"])
	assert.Equal(t, int64(50), fields["total_chunks"])
	assert.Equal(t, "30s", fields["position"])
	assert.Equal(t, "10.0%", fields["percent"])
	assert.Equal(t, 1, logs.FilterMessage("Download progress complete").Len())
}

func TestTerminalProgress_Bar(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalProgress{
		out:             &out,
		width:           func() (int, error) { return 120, nil },
		secondsPerChunk: 6,
		interval:        time.Second,
		logger:          zap.NewNop(),
	}

	indicator := p.New("Quarterly Review", 50)
	_, ok := indicator.(*barProgress)
	require.True(t, ok)

	indicator.Set(25, 1200)
	indicator.Finish()

	assert.Contains(t, out.String(), "Quarterly Review")
	assert.Contains(t, out.String(), "50/50")
}

func TestBarWidth(t *testing.T) {
	assert.Equal(t, 10, barWidth(40, 20))
	assert.Equal(t, 60, barWidth(300, 20))
	assert.Equal(t, 40, barWidth(100, 20))
}
