// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/infra/config"
	"github.com/runoshun/adr-sync/internal/infra/executor"
	"github.com/runoshun/adr-sync/internal/infra/logging"
	"github.com/runoshun/adr-sync/internal/infra/restapi"
	"github.com/runoshun/adr-sync/internal/infra/wsclient"
	"github.com/runoshun/adr-sync/internal/usecase"
)

// ClientSessionHeader identifies one adr-sync process to the push endpoint.
const ClientSessionHeader = "X-Client-Session"

// Config holds the application paths.
type Config struct {
	WorkDir string // Directory holding .adr-sync.toml and .env
	LogDir  string // Directory for adr-sync.log and task-<id>.log
}

// Backend is the REST surface of the backend.
type Backend interface {
	domain.TaskStatusFetcher
	domain.QueueStatusFetcher
	domain.RecordReloader
	domain.TaskSubmitter
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Backend       Backend
	Dialer        domain.PushDialer
	Executor      domain.CommandExecutor
	EventLog      domain.Logger

	// Pointer fields
	Logger    *slog.Logger
	AppConfig *domain.Config
	loader    *config.Loader
	closers   []io.Closer

	// Configuration
	Config Config
}

// New creates a new Container for the given working directory.
func New(dir string) (*Container, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve work dir: %w", err)
	}

	configLoader := config.NewLoader(abs)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(appConfig.Log.Level),
	}))
	for _, w := range appConfig.Warnings {
		logger.Warn(w)
	}

	backend, err := restapi.New(appConfig.Server.BaseURL, appConfig.Server.Timeout())
	if err != nil {
		return nil, err
	}

	cfg := Config{WorkDir: abs, LogDir: resolveLogDir(appConfig.Log.Dir)}
	eventLog := logging.New(cfg.LogDir, logging.ParseLevel(appConfig.Log.Level))

	return &Container{
		Clock:         domain.RealClock{},
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(abs),
		Backend:       backend,
		Dialer: wsclient.NewDialer(
			wsclient.WithHandshakeTimeout(appConfig.Server.Timeout()),
			wsclient.WithHeader(ClientSessionHeader, uuid.NewString()),
		),
		Executor:  executor.NewClient(),
		EventLog:  eventLog,
		Logger:    logger,
		AppConfig: appConfig,
		loader:    configLoader,
		closers:   []io.Closer{eventLog},
		Config:    cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, appConfig *domain.Config, backend Backend, dialer domain.PushDialer, clock domain.Clock, logger *slog.Logger) *Container {
	return &Container{
		Clock:     clock,
		Backend:   backend,
		Dialer:    dialer,
		EventLog:  domain.NopLogger{},
		Logger:    logger,
		AppConfig: appConfig,
		Config:    cfg,
	}
}

// resolveLogDir returns dir, or the state-home log directory when dir is empty.
func resolveLogDir(dir string) string {
	if dir != "" {
		return dir
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return domain.DefaultLogDir(stateHome)
}

// Close releases log files.
func (c *Container) Close() error {
	var firstErr error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WatchConfig calls onChange with every configuration reloaded after the
// project config file changes. It blocks until ctx is done. Containers
// built with NewWithDeps have nothing to watch and return immediately.
func (c *Container) WatchConfig(ctx context.Context, onChange func(*domain.Config)) error {
	if c.loader == nil {
		return nil
	}
	return config.NewWatcher(c.loader, c.EventLog, onChange).Run(ctx)
}

// UseCase factory methods

// SubmitTaskUseCase returns a new SubmitTask use case.
func (c *Container) SubmitTaskUseCase() *usecase.SubmitTask {
	return usecase.NewSubmitTask(c.Backend, c.EventLog)
}

// ShowStatusUseCase returns a new ShowStatus use case.
func (c *Container) ShowStatusUseCase() *usecase.ShowStatus {
	return usecase.NewShowStatus(c.Backend)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// TrackTaskUseCase returns a new TrackTask use case running on session.
// stdout and stderr are the writers for progress lines and command output.
func (c *Container) TrackTaskUseCase(session usecase.LiveSession, stdout, stderr io.Writer) *usecase.TrackTask {
	return usecase.NewTrackTask(session, c.Executor, c.Clock, stdout, stderr)
}
