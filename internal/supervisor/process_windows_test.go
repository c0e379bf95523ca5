//go:build windows

package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskkillKillsTree(t *testing.T) {
	assert.Equal(t, []string{"/T", "/F", "/PID", "4242"}, taskkillArgs(4242))
}

func processAlive(pid int) bool { return false }
