package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DurationToChunks converts a full video duration into the chunk count the
// progress indicator is scaled to. The result is rounded up and never below 1.
func DurationToChunks(d time.Duration, secondsPerChunk float64) int {
	if secondsPerChunk <= 0 {
		secondsPerChunk = 1
	}
	chunks := int(math.Ceil(d.Seconds() / secondsPerChunk))
	if chunks < 1 {
		return 1
	}
	return chunks
}

// ElapsedToChunks converts elapsed media time into completed chunks (rounded down)
func ElapsedToChunks(d time.Duration, secondsPerChunk float64) int {
	if secondsPerChunk <= 0 {
		secondsPerChunk = 1
	}
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Seconds() / secondsPerChunk))
}

// ParseTimemark parses an ffmpeg timemark such as "00:01:30.52" or "-00:00:00.01"
func ParseTimemark(mark string) (time.Duration, error) {
	mark = strings.TrimSpace(mark)
	if mark == "" || mark == "N/A" {
		return 0, fmt.Errorf("empty timemark")
	}

	negative := strings.HasPrefix(mark, "-")
	parts := strings.Split(strings.TrimPrefix(mark, "-"), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timemark %q", mark)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timemark hours %q: %w", mark, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timemark minutes %q: %w", mark, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timemark seconds %q: %w", mark, err)
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if negative {
		return 0, nil
	}
	return d, nil
}
