package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/yourusername/destream-go/internal/domain"
)

var videoIDRegex = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// inputEntry is one video from the command line or an input file. OutDir
// is empty unless the input file names one.
type inputEntry struct {
	ID     string
	OutDir string
}

// parseVideoID extracts the video GUID from a video URL or a bare id
func parseVideoID(s string) (string, error) {
	id := videoIDRegex.FindString(s)
	if id == "" {
		return "", fmt.Errorf("%w: no video id in %q", domain.ErrInvalidInput, s)
	}
	return strings.ToLower(id), nil
}

// readInputFile parses one video per line. Blank lines and lines starting
// with # are ignored. A -dir="path" line sets the output directory of the
// video above it.
func readInputFile(r io.Reader) ([]inputEntry, error) {
	var entries []inputEntry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "-dir=") {
			if len(entries) == 0 {
				return nil, fmt.Errorf("%w: line %d: -dir without a video", domain.ErrInvalidInput, line)
			}
			dir := strings.Trim(strings.TrimPrefix(text, "-dir="), `"'`)
			if dir == "" {
				return nil, fmt.Errorf("%w: line %d: empty -dir", domain.ErrInvalidInput, line)
			}
			entries[len(entries)-1].OutDir = dir
			continue
		}

		id, err := parseVideoID(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, inputEntry{ID: id})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return entries, nil
}

// buildRequests pairs every video with its output directory. outDirs must
// hold either one directory for all videos or exactly one per video;
// empty outDirs falls back to defaultDir. Directories from the input file
// take precedence.
func buildRequests(entries []inputEntry, outDirs []string, defaultDir string) ([]domain.VideoRequest, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no videos given", domain.ErrInvalidInput)
	}

	switch len(outDirs) {
	case 0:
		outDirs = []string{defaultDir}
	case 1, len(entries):
	default:
		return nil, fmt.Errorf("%w: %d directories for %d videos", domain.ErrOutputDirMismatch, len(outDirs), len(entries))
	}

	requests := make([]domain.VideoRequest, len(entries))
	for i, e := range entries {
		dir := e.OutDir
		if dir == "" {
			if len(outDirs) == 1 {
				dir = outDirs[0]
			} else {
				dir = outDirs[i]
			}
		}
		requests[i] = domain.VideoRequest{ID: e.ID, OutDir: dir}
	}
	return requests, nil
}

// collectInputs gathers videos from positional arguments and the input file
func collectInputs(args []string, inputFile string) ([]inputEntry, error) {
	var entries []inputEntry
	for _, arg := range args {
		id, err := parseVideoID(arg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, inputEntry{ID: id})
	}

	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		defer f.Close()

		fromFile, err := readInputFile(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromFile...)
	}
	return entries, nil
}

// prepareOutputDirs creates every output directory and checks it is writable
func prepareOutputDirs(requests []domain.VideoRequest) error {
	seen := make(map[string]bool)
	for _, req := range requests {
		if seen[req.OutDir] {
			continue
		}
		seen[req.OutDir] = true

		if err := os.MkdirAll(req.OutDir, 0755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidOutputDir, err)
		}
		probe, err := os.CreateTemp(req.OutDir, ".destream-*")
		if err != nil {
			return fmt.Errorf("%w: %s is not writable: %v", domain.ErrInvalidOutputDir, req.OutDir, err)
		}
		probe.Close()
		os.Remove(probe.Name())
	}
	return nil
}
