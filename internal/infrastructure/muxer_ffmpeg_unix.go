//go:build !windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts ffmpeg in its own process group, out of reach of a terminal Ctrl+C
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group
		Pgid:    0,    // Use the new process's PID as PGID
	}
}

// killProcessGroup kills ffmpeg and anything it spawned
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
