//go:build !windows

package infrastructure

import "os"

// isElevated reports whether the process runs as root
func isElevated() (bool, error) {
	return os.Geteuid() == 0, nil
}
