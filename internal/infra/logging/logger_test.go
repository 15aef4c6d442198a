package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLogger_TaskEntryGoesToBothFiles(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("t1", "poller", "status progress")

	content, err := os.ReadFile(domain.GlobalLogPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[INFO] [task-t1] [poller] status progress")

	taskContent, err := os.ReadFile(domain.TaskLogPath(dir, "t1"))
	require.NoError(t, err)
	assert.Contains(t, string(taskContent), "status progress")
}

func TestLogger_GlobalLogOnly(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("", "session", "mounted")

	content, err := os.ReadFile(domain.GlobalLogPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[global]")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir, slog.LevelWarn)
	defer func() { _ = logger.Close() }()

	logger.Debug("t1", "router", "debug message")
	logger.Info("t1", "router", "info message")
	logger.Warn("t1", "router", "warn message")
	logger.Error("t1", "router", "error message")

	content, err := os.ReadFile(domain.GlobalLogPath(dir))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "debug message")
	assert.NotContains(t, string(content), "info message")
	assert.Contains(t, string(content), "warn message")
	assert.Contains(t, string(content), "error message")
}

func TestLogger_DisabledWhenEmptyDir(t *testing.T) {
	logger := New("", slog.LevelDebug)
	defer func() { _ = logger.Close() }()

	logger.Info("t1", "poller", "test message")
	logger.Error("", "session", "error message")
}

func TestLogger_LogFormat(t *testing.T) {
	dir := t.TempDir()
	clock := &testutil.MockClock{NowTime: time.Date(2025, 12, 30, 9, 32, 51, 0, time.UTC)}
	logger := New(dir, slog.LevelInfo, WithClock(clock))
	defer func() { _ = logger.Close() }()

	logger.Warn("a1b2", "router", `dropped malformed payload: "{"`)

	content, err := os.ReadFile(domain.GlobalLogPath(dir))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `[2025-12-30 09:32:51] [WARN] [task-a1b2] [router] dropped malformed payload: "{"`, lines[0])
}

func TestLogger_Mirror(t *testing.T) {
	var buf bytes.Buffer
	logger := New("", slog.LevelWarn, WithMirror(&buf))

	logger.Info("", "connection", "open")
	logger.Warn("", "connection", "closed: connection reset")

	assert.NotContains(t, buf.String(), "open")
	assert.Contains(t, buf.String(), "[WARN] [global] [connection] closed: connection reset")
}

func TestLogger_TaskIDWithSeparatorStaysInDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir, slog.LevelInfo)

	logger.Info("../escape", "poller", "message")
	require.NoError(t, logger.Close())

	path := domain.TaskLogPath(dir, "../escape")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestLogger_CreatesLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "logs")
	logger := New(dir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("t1", "poller", "test message")

	stat, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}
