package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string     `toml:"-"`
	Server   ServerConfig `toml:"server"`
	Sync     SyncConfig   `toml:"sync"`
	Log      LogConfig    `toml:"log"`
}

// DeploymentMode selects how the push URL is derived from the base URL.
type DeploymentMode string

const (
	// DeployLAN serves the push channel on the same host at a separate port.
	DeployLAN DeploymentMode = "lan"
	// DeployLoadBalanced serves the push channel behind the same host and port.
	DeployLoadBalanced DeploymentMode = "load-balanced"
)

// ServerConfig holds backend endpoint settings from [server] section.
type ServerConfig struct {
	BaseURL    string         `toml:"base_url,omitempty"`    // REST base URL, e.g. http://localhost:8000
	Deployment DeploymentMode `toml:"deployment,omitempty"`  // "lan" (default) or "load-balanced"
	PushPath   string         `toml:"push_path,omitempty"`   // Push channel path (default: /ws)
	PushURL    string         `toml:"push_url,omitempty"`    // Explicit push URL; overrides derivation
	PushPort   int            `toml:"push_port,omitempty"`   // Push port in LAN mode (default: 8001)
	TimeoutSec int            `toml:"timeout_sec,omitempty"` // REST request timeout
}

// OrderingPolicy decides which of two racing task updates wins.
type OrderingPolicy string

const (
	// OrderLastWriteWins applies every update in arrival order.
	OrderLastWriteWins OrderingPolicy = "last-write-wins"
	// OrderRevision drops updates carrying a lower revision than the stored one.
	OrderRevision OrderingPolicy = "revision"
)

// SyncConfig holds synchronization timings from [sync] section.
type SyncConfig struct {
	Ordering             OrderingPolicy `toml:"ordering,omitempty"`
	KeepaliveIntervalSec int            `toml:"keepalive_interval_sec,omitempty"`
	PollIntervalMs       int            `toml:"poll_interval_ms,omitempty"`
	ReconnectBaseMs      int            `toml:"reconnect_base_ms,omitempty"`
	ReconnectMaxMs       int            `toml:"reconnect_max_ms,omitempty"`
	DismissDelaySec      int            `toml:"dismiss_delay_sec,omitempty"`
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
	Dir   string `toml:"dir,omitempty"`   // Log directory; empty uses the state directory
}

// Default configuration values.
const (
	DefaultBaseURL              = "http://localhost:8000"
	DefaultPushPort             = 8001
	DefaultPushPath             = "/ws"
	DefaultTimeoutSec           = 30
	DefaultKeepaliveIntervalSec = 30
	DefaultPollIntervalMs       = 2000
	DefaultReconnectBaseMs      = 1000
	DefaultReconnectMaxMs       = 30000
	DefaultDismissDelaySec      = 10
	DefaultLogLevel             = "info"

	MinDismissDelay = time.Second
	MaxDismissDelay = 5 * time.Minute
)

// Directory and file names for adr-sync.
const (
	AppDirName            = "adr-sync"       // Directory name under XDG config/state homes
	ConfigFileName        = "config.toml"    // Global config file name
	ProjectConfigFileName = ".adr-sync.toml" // Config file name in the working directory
	EnvFileName           = ".env"           // Optional environment overrides
	LogFileName           = "adr-sync.log"   // Global log file name
)

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// ProjectConfigPath returns the project config path for a working directory.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, ProjectConfigFileName)
}

// DefaultLogDir returns the log directory under the state home.
// stateHome is typically XDG_STATE_HOME or ~/.local/state (resolved by caller).
func DefaultLogDir(stateHome string) string {
	return filepath.Join(stateHome, AppDirName, "logs")
}

// GlobalLogPath returns the path of the global log file.
func GlobalLogPath(logDir string) string {
	return filepath.Join(logDir, LogFileName)
}

// TaskLogPath returns the path of a task's log file. Path separators in
// the id are replaced so every task stays inside logDir.
func TaskLogPath(logDir, taskID string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, taskID)
	return filepath.Join(logDir, "task-"+safe+".log")
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:    DefaultBaseURL,
			Deployment: DeployLAN,
			PushPort:   DefaultPushPort,
			PushPath:   DefaultPushPath,
			TimeoutSec: DefaultTimeoutSec,
		},
		Sync: SyncConfig{
			Ordering:             OrderLastWriteWins,
			KeepaliveIntervalSec: DefaultKeepaliveIntervalSec,
			PollIntervalMs:       DefaultPollIntervalMs,
			ReconnectBaseMs:      DefaultReconnectBaseMs,
			ReconnectMaxMs:       DefaultReconnectMaxMs,
			DismissDelaySec:      DefaultDismissDelaySec,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Validate checks values that cannot be repaired with a default.
func (c *Config) Validate() error {
	switch c.Server.Deployment {
	case DeployLAN, DeployLoadBalanced:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDeploy, c.Server.Deployment)
	}
	switch c.Sync.Ordering {
	case OrderLastWriteWins, OrderRevision:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrdering, c.Sync.Ordering)
	}
	if d := c.Sync.DismissDelay(); d < MinDismissDelay || d > MaxDismissDelay {
		return fmt.Errorf("%w: %s (allowed %s..%s)", ErrDismissDelay, d, MinDismissDelay, MaxDismissDelay)
	}
	if c.Server.BaseURL == "" {
		return ErrNoBaseURL
	}
	return nil
}

// KeepaliveInterval returns the keep-alive period.
func (s SyncConfig) KeepaliveInterval() time.Duration {
	return time.Duration(s.KeepaliveIntervalSec) * time.Second
}

// PollInterval returns the delay between task status fetches.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// ReconnectBase returns the first reconnect delay.
func (s SyncConfig) ReconnectBase() time.Duration {
	return time.Duration(s.ReconnectBaseMs) * time.Millisecond
}

// ReconnectMax returns the reconnect delay ceiling.
func (s SyncConfig) ReconnectMax() time.Duration {
	return time.Duration(s.ReconnectMaxMs) * time.Millisecond
}

// DismissDelay returns how long finished tasks stay visible.
func (s SyncConfig) DismissDelay() time.Duration {
	return time.Duration(s.DismissDelaySec) * time.Second
}

// Timeout returns the REST request timeout.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// ResolvePushURL returns the push channel URL. An explicit push_url wins;
// otherwise the URL is derived from base_url and the deployment mode.
func (s ServerConfig) ResolvePushURL() (string, error) {
	if s.PushURL != "" {
		return s.PushURL, nil
	}
	if s.BaseURL == "" {
		return "", ErrNoBaseURL
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}
	if base.Host == "" {
		return "", fmt.Errorf("parse base_url: missing host in %q", s.BaseURL)
	}

	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}

	host := base.Host
	if s.Deployment != DeployLoadBalanced {
		port := s.PushPort
		if port == 0 {
			port = DefaultPushPort
		}
		host = net.JoinHostPort(base.Hostname(), strconv.Itoa(port))
	}

	path := s.PushPath
	if path == "" {
		path = DefaultPushPath
	}

	u := url.URL{Scheme: scheme, Host: host, Path: path}
	return u.String(), nil
}

// RenderConfigTemplate renders the commented config template with the
// values of cfg as the documented defaults.
func RenderConfigTemplate(cfg *Config) string {
	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		// Should never happen with valid data
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}

	return buf.String()
}
