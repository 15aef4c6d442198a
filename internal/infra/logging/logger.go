// Package logging provides file-based logging for adr-sync.
// Every entry goes to the global log file (<log-dir>/adr-sync.log); entries
// scoped to a task also go to <log-dir>/task-<id>.log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes formatted entries to log files under a directory.
// It is safe for concurrent use: the loop and worker goroutines share one.
// Fields are ordered to minimize memory padding.
type Logger struct {
	clock      domain.Clock
	mirror     io.Writer
	globalFile *os.File
	taskFiles  map[string]*os.File
	dir        string
	mu         sync.Mutex
	level      slog.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock sets the clock used for timestamps.
func WithClock(c domain.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

// WithMirror also writes every entry at or above the level to w.
func WithMirror(w io.Writer) Option {
	return func(l *Logger) { l.mirror = w }
}

// New creates a Logger that writes to dir.
// If dir is empty, file logging is disabled.
func New(dir string, level slog.Level, opts ...Option) *Logger {
	l := &Logger{
		clock:     domain.RealClock{},
		dir:       dir,
		level:     level,
		taskFiles: make(map[string]*os.File),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Dir returns the log directory, empty when file logging is disabled.
func (l *Logger) Dir() string {
	return l.dir
}

// openFile opens path for appending, creating the log directory on demand.
// Caller holds the lock.
func (l *Logger) openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func (l *Logger) globalWriter() (*os.File, error) {
	if l.globalFile != nil {
		return l.globalFile, nil
	}
	f, err := l.openFile(domain.GlobalLogPath(l.dir))
	if err != nil {
		return nil, err
	}
	l.globalFile = f
	return f, nil
}

func (l *Logger) taskWriter(taskID string) (*os.File, error) {
	if f, ok := l.taskFiles[taskID]; ok {
		return f, nil
	}
	f, err := l.openFile(domain.TaskLogPath(l.dir, taskID))
	if err != nil {
		return nil, err
	}
	l.taskFiles[taskID] = f
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.taskFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.taskFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [task-3f2a] [poller] message
func formatLog(l *Logger, level slog.Level, taskID, category, msg string) string {
	taskStr := "global"
	if taskID != "" {
		taskStr = "task-" + taskID
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		l.clock.Now().Format("2006-01-02 15:04:05"),
		levelToString(level),
		taskStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes an entry to the global log and, when taskID is set, to the
// task's own log.
func (l *Logger) log(level slog.Level, taskID, category, msg string) {
	if level < l.level {
		return
	}
	if l.dir == "" && l.mirror == nil {
		return
	}

	entry := formatLog(l, level, taskID, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, entry)
	}
	if l.dir == "" {
		return
	}
	if gf, err := l.globalWriter(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if taskID != "" {
		if tf, err := l.taskWriter(taskID); err == nil {
			_, _ = io.WriteString(tf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(taskID, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}
