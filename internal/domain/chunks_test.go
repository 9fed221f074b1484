package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimemark(t *testing.T) {
	tests := []struct {
		mark     string
		expected time.Duration
	}{
		{"00:00:10", 10 * time.Second},
		{"00:01:30", 90 * time.Second},
		{"01:02:03.50", time.Hour + 2*time.Minute + 3500*time.Millisecond},
		{"-00:00:00.02", 0},
	}

	for _, tt := range tests {
		t.Run(tt.mark, func(t *testing.T) {
			d, err := ParseTimemark(tt.mark)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestParseTimemark_Invalid(t *testing.T) {
	for _, mark := range []string{"", "N/A", "10", "aa:bb:cc", "00:00"} {
		_, err := ParseTimemark(mark)
		assert.Error(t, err, mark)
	}
}

func TestDurationToChunks(t *testing.T) {
	assert.Equal(t, 50, DurationToChunks(5*time.Minute, 6))
	assert.Equal(t, 2, DurationToChunks(7*time.Second, 6))
	assert.Equal(t, 1, DurationToChunks(0, 6))
	assert.Equal(t, 1, DurationToChunks(time.Second, 60))
}

func TestElapsedToChunks_TimemarkSequence(t *testing.T) {
	const total = 50
	last := 0
	for _, mark := range []string{"00:00:10", "00:01:30", "00:05:00"} {
		d, err := ParseTimemark(mark)
		require.NoError(t, err)

		chunks := ElapsedToChunks(d, 6)
		assert.GreaterOrEqual(t, chunks, last)
		assert.LessOrEqual(t, chunks, total)
		last = chunks
	}
	assert.Equal(t, 50, last)
}
