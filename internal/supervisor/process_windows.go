//go:build windows

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

const createNoWindow = 0x08000000

// buildCommand runs the command through cmd /C so .cmd and .bat shims such
// as npx resolve.
func buildCommand(command string, args []string) *exec.Cmd {
	return exec.Command("cmd", append([]string{"/C", command}, args...)...)
}

func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | createNoWindow,
	}
}

// Windows has no SIGTERM for console-less processes; the tree is killed.
func terminateGroup(pid int) error {
	return killGroup(pid)
}

// killGroup kills pid and every process it started. Killing only cmd.exe
// would leave the node process behind npx running.
func killGroup(pid int) error {
	cmd := exec.Command("taskkill", taskkillArgs(pid)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
	if out, err := cmd.CombinedOutput(); err != nil {
		proc, findErr := os.FindProcess(pid)
		if findErr != nil {
			return fmt.Errorf("taskkill %d failed: %v (%s)", pid, err, out)
		}
		if killErr := proc.Kill(); killErr != nil {
			return fmt.Errorf("taskkill %d failed: %v (%s), kill also failed: %w", pid, err, out, killErr)
		}
	}
	return nil
}

func taskkillArgs(pid int) []string {
	return []string{"/T", "/F", "/PID", strconv.Itoa(pid)}
}
