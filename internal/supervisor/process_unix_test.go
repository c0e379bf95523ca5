//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
)

// processAlive reports whether pid still exists. Reaped processes answer
// signal 0 with ESRCH.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return !errors.Is(err, syscall.ESRCH)
}
