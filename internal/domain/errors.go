package domain

import "errors"

// ExitCode is a stable process exit status for scripting callers
type ExitCode int

const (
	ExitOK                 ExitCode = 0
	ExitUnhandled          ExitCode = 1
	ExitMissingFFmpeg      ExitCode = 2
	ExitElevatedShell      ExitCode = 3
	ExitInvalidOutputDir   ExitCode = 4
	ExitInvalidInput       ExitCode = 5
	ExitOutputDirMismatch  ExitCode = 6
	ExitInvalidVideoID     ExitCode = 7
	ExitUnknownFFmpegError ExitCode = 8
	ExitNoSessionInfo      ExitCode = 9
	ExitInterrupted        ExitCode = 10
)

var (
	// Authentication
	ErrCredentialsRequired = errors.New("credential prompt shown but no username or password configured")
	ErrAuthTimeout         = errors.New("timed out waiting for login step")
	ErrNoSessionInfo       = errors.New("could not extract session info from page")

	// Download
	ErrMuxFailed    = errors.New("muxing process failed")
	ErrInterrupted  = errors.New("interrupted")
	ErrInvalidVideo = errors.New("invalid video id")

	// Preflight and input
	ErrElevatedShell     = errors.New("refusing to run with elevated privileges")
	ErrMissingFFmpeg     = errors.New("ffmpeg binary not found")
	ErrInvalidOutputDir  = errors.New("invalid output directory")
	ErrInvalidInput      = errors.New("invalid input")
	ErrOutputDirMismatch = errors.New("number of output directories does not match number of videos")

	// Browser driver
	ErrWaitTimeout = errors.New("wait timed out")
)

var exitCodes = []struct {
	err  error
	code ExitCode
}{
	{ErrInterrupted, ExitInterrupted},
	{ErrElevatedShell, ExitElevatedShell},
	{ErrMissingFFmpeg, ExitMissingFFmpeg},
	{ErrInvalidOutputDir, ExitInvalidOutputDir},
	{ErrOutputDirMismatch, ExitOutputDirMismatch},
	{ErrInvalidInput, ExitInvalidInput},
	{ErrInvalidVideo, ExitInvalidVideoID},
	{ErrMuxFailed, ExitUnknownFFmpegError},
	{ErrCredentialsRequired, ExitNoSessionInfo},
	{ErrAuthTimeout, ExitNoSessionInfo},
	{ErrNoSessionInfo, ExitNoSessionInfo},
}

// ExitCodeFor maps an error chain onto its exit code
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ExitUnhandled
}
