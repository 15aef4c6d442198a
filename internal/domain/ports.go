package domain

import (
	"context"
	"time"
)

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Timer is a pending delayed callback.
type Timer interface {
	// Stop cancels the callback. After Stop returns the callback will not run.
	// Returns false if the callback already ran or was already stopped.
	Stop() bool
}

// Scheduler serializes every state mutation onto a single event loop.
// All callbacks handed to a Scheduler run one at a time, to completion.
type Scheduler interface {
	Clock

	// Post queues fn to run on the loop as soon as possible.
	Post(fn func())

	// AfterFunc queues fn to run on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer

	// Spawn runs work off the loop and then runs the continuation it
	// returns on the loop. A nil continuation is skipped.
	Spawn(work func() func())
}

// PushHandlers receives push channel events. Handlers may be invoked from
// any goroutine; implementations must not assume they run on the loop.
type PushHandlers struct {
	OnOpen    func()
	OnMessage func(payload []byte)
	OnClose   func(err error) // Called exactly once per channel
}

// PushChannel is one live push connection.
type PushChannel interface {
	// Send writes a text frame.
	Send(payload []byte) error

	// Close shuts the channel down. OnClose still fires once.
	Close() error
}

// PushDialer opens push channels.
type PushDialer interface {
	// Open starts connecting to url and returns immediately. Exactly one of
	// OnOpen-then-OnClose or OnClose alone is eventually delivered.
	Open(url string, h PushHandlers) PushChannel
}

// TaskStatusFetcher reads a task's status from its kind-specific endpoint.
type TaskStatusFetcher interface {
	FetchTaskStatus(ctx context.Context, id string, kind TaskKind) (*TaskStatusResponse, error)
}

// QueueStatusFetcher reads the aggregate queue and cache projections.
type QueueStatusFetcher interface {
	FetchQueueStatus(ctx context.Context) (*QueueStatus, error)
	FetchCacheStatus(ctx context.Context) (*CacheStatus, error)
}

// RecordReloader reloads the decision record list after records change.
type RecordReloader interface {
	// ReloadRecords refetches the list and returns the number of records.
	ReloadRecords(ctx context.Context) (int, error)
}

// TaskSubmitter creates backend tasks.
type TaskSubmitter interface {
	SubmitTask(ctx context.Context, kind TaskKind, body []byte) (*TaskCreated, error)
}

// Logger writes categorized log entries, optionally scoped to a task.
// An empty taskID logs to the global log only.
type Logger interface {
	Debug(taskID, category, msg string)
	Info(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(_, _, _ string) {}
func (NopLogger) Info(_, _, _ string)  {}
func (NopLogger) Warn(_, _, _ string)  {}
func (NopLogger) Error(_, _, _ string) {}

// LoadConfigOptions selects which sources Load merges.
type LoadConfigOptions struct {
	IgnoreGlobal  bool // Skip the global config file
	IgnoreProject bool // Skip the project config file
	IgnoreEnv     bool // Skip environment and .env overrides
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + global + project + env).
	Load() (*Config, error)

	// LoadWithOptions is Load with some sources skipped.
	LoadWithOptions(opts LoadConfigOptions) (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// ConfigManager inspects and creates config files.
type ConfigManager interface {
	GlobalConfigInfo() ConfigInfo
	ProjectConfigInfo() ConfigInfo
	InitGlobalConfig(cfg *Config) error
	InitProjectConfig(cfg *Config) error
}

// ConfigInfo describes a config file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}
