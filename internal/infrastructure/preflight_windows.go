//go:build windows

package infrastructure

import "golang.org/x/sys/windows"

// isElevated reports whether the process token is elevated
func isElevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}
