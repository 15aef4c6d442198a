// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// StatusStep is one scripted response of MockBackend.FetchTaskStatus.
type StatusStep struct {
	Err  error
	Resp domain.TaskStatusResponse
}

// MockBackend is a test double for the REST collaborators: task status,
// queue/cache bootstrap, record reload and task submission.
// Fields are ordered to minimize memory padding.
type MockBackend struct {
	Queue        *domain.QueueStatus
	Cache        *domain.CacheStatus
	QueueErr     error
	CacheErr     error
	ReloadErr    error
	SubmitErr    error
	Created      *domain.TaskCreated
	Scripts      map[string][]StatusStep
	StatusCalls  map[string]int
	SubmitBodies [][]byte
	ReloadCount  int
	RecordCount  int
	QueueCalls   int
	CacheCalls   int
	mu           sync.Mutex
}

// NewMockBackend creates a MockBackend with initialized maps.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Scripts:     make(map[string][]StatusStep),
		StatusCalls: make(map[string]int),
	}
}

// Script appends responses for a task id. The last step repeats once the
// script is exhausted.
func (m *MockBackend) Script(id string, steps ...StatusStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripts[id] = append(m.Scripts[id], steps...)
}

// FetchTaskStatus returns the next scripted step for id.
func (m *MockBackend) FetchTaskStatus(_ context.Context, id string, _ domain.TaskKind) (*domain.TaskStatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := m.Scripts[id]
	n := m.StatusCalls[id]
	m.StatusCalls[id] = n + 1
	if len(steps) == 0 {
		return nil, fmt.Errorf("no script for task %s", id)
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	step := steps[n]
	if step.Err != nil {
		return nil, step.Err
	}
	resp := step.Resp
	return &resp, nil
}

// Calls returns how many times the status of id was fetched.
func (m *MockBackend) Calls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusCalls[id]
}

// FetchQueueStatus returns the configured queue status.
func (m *MockBackend) FetchQueueStatus(_ context.Context) (*domain.QueueStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueCalls++
	if m.QueueErr != nil {
		return nil, m.QueueErr
	}
	if m.Queue == nil {
		return &domain.QueueStatus{}, nil
	}
	q := *m.Queue
	return &q, nil
}

// FetchCacheStatus returns the configured cache status.
func (m *MockBackend) FetchCacheStatus(_ context.Context) (*domain.CacheStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheCalls++
	if m.CacheErr != nil {
		return nil, m.CacheErr
	}
	if m.Cache == nil {
		return &domain.CacheStatus{}, nil
	}
	c := *m.Cache
	return &c, nil
}

// ReloadRecords counts reloads.
func (m *MockBackend) ReloadRecords(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReloadCount++
	if m.ReloadErr != nil {
		return 0, m.ReloadErr
	}
	return m.RecordCount, nil
}

// Reloads returns the number of ReloadRecords calls.
func (m *MockBackend) Reloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReloadCount
}

// SubmitTask records the body and returns Created.
func (m *MockBackend) SubmitTask(_ context.Context, _ domain.TaskKind, body []byte) (*domain.TaskCreated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitBodies = append(m.SubmitBodies, body)
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	if m.Created == nil {
		return &domain.TaskCreated{TaskID: "task-1", Status: domain.StatusQueued}, nil
	}
	c := *m.Created
	return &c, nil
}

// LogEntry is one entry captured by RecordingLogger.
type LogEntry struct {
	Level    string
	TaskID   string
	Category string
	Msg      string
}

// RecordingLogger is a domain.Logger that keeps every entry in memory.
type RecordingLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (l *RecordingLogger) add(level, taskID, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

func (l *RecordingLogger) Debug(taskID, category, msg string) { l.add("debug", taskID, category, msg) }
func (l *RecordingLogger) Info(taskID, category, msg string)  { l.add("info", taskID, category, msg) }
func (l *RecordingLogger) Warn(taskID, category, msg string)  { l.add("warn", taskID, category, msg) }
func (l *RecordingLogger) Error(taskID, category, msg string) { l.add("error", taskID, category, msg) }

// Count returns the number of entries at the given level.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockCommandExecutor records commands instead of running them.
type MockCommandExecutor struct {
	Err      error
	Output   []byte
	Commands []*domain.ExecCommand
	mu       sync.Mutex
}

// NewMockCommandExecutor creates a MockCommandExecutor.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{}
}

// Execute records cmd and returns Output.
func (m *MockCommandExecutor) Execute(cmd *domain.ExecCommand) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, cmd)
	return m.Output, m.Err
}

// ExecuteWithContext records cmd and writes Output to stdout.
func (m *MockCommandExecutor) ExecuteWithContext(_ context.Context, cmd *domain.ExecCommand, stdout, _ io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, cmd)
	if len(m.Output) > 0 && stdout != nil {
		_, _ = stdout.Write(m.Output)
	}
	return m.Err
}

// Scripts returns the sh -c scripts of every recorded command.
func (m *MockCommandExecutor) Scripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.Commands {
		if len(c.Args) == 2 && c.Args[0] == "-c" {
			out = append(out, c.Args[1])
		}
	}
	return out
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
	GlobalErr    error
	LastOptions  domain.LoadConfigOptions
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	return m.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadWithOptions records opts and returns the configured config or error.
func (m *MockConfigLoader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	m.LastOptions = opts
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured global config or error.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	if m.GlobalConfig == nil {
		return domain.NewDefaultConfig(), nil
	}
	return m.GlobalConfig, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitProjectErr    error
	InitGlobalErr     error
	InitWith          *domain.Config
	ProjectInfo       domain.ConfigInfo
	GlobalInfo        domain.ConfigInfo
	InitProjectCalled bool
	InitGlobalCalled  bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		ProjectInfo: domain.ConfigInfo{Path: "/test/project/.adr-sync.toml"},
		GlobalInfo:  domain.ConfigInfo{Path: "/home/test/.config/adr-sync/config.toml"},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalInfo
}

// ProjectConfigInfo returns the configured project config info.
func (m *MockConfigManager) ProjectConfigInfo() domain.ConfigInfo {
	return m.ProjectInfo
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	m.InitGlobalCalled = true
	m.InitWith = cfg
	return m.InitGlobalErr
}

// InitProjectConfig records the call.
func (m *MockConfigManager) InitProjectConfig(cfg *domain.Config) error {
	m.InitProjectCalled = true
	m.InitWith = cfg
	return m.InitProjectErr
}
