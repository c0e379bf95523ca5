package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message %d", 42)
	Debug("test-subsystem", "hidden debug")
	Error("test-subsystem", errors.New("boom"), "failed")

	output := buf.String()
	assert.Contains(t, output, "test message 42")
	assert.Contains(t, output, "subsystem=test-subsystem")
	assert.Contains(t, output, "error=boom")
	assert.NotContains(t, output, "hidden debug")
}

func TestInitForChannel(t *testing.T) {
	entries := InitForChannel(LevelWarn, 4)
	defer InitForCLI(LevelInfo, &bytes.Buffer{})

	Info("Registry", "dropped by level")
	Warn("Registry", "server %s exited", "alpha")

	select {
	case entry := <-entries:
		assert.Equal(t, LevelWarn, entry.Level)
		assert.Equal(t, "Registry", entry.Subsystem)
		assert.Equal(t, "server alpha exited", entry.Message)
		assert.WithinDuration(t, time.Now(), entry.Timestamp, time.Second)
	case <-time.After(time.Second):
		t.Fatal("expected a log entry")
	}

	select {
	case entry := <-entries:
		t.Fatalf("unexpected entry %q", entry.Message)
	default:
	}
}

func TestCloseChannel(t *testing.T) {
	entries := InitForChannel(LevelDebug, 1)
	CloseChannel()

	_, ok := <-entries
	require.False(t, ok)

	assert.NotPanics(t, func() {
		Info("Registry", "after close")
	})

	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)
	Info("Registry", "back to writer")
	assert.True(t, strings.Contains(buf.String(), "back to writer"))
}
