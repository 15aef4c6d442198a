// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files and the environment.
type Loader struct {
	lookup        func(string) (string, bool) // Environment lookup
	projectDir    string                      // Directory holding .adr-sync.toml and .env
	globalConfDir string                      // Path to global config directory (e.g., ~/.config/adr-sync)
}

// NewLoader creates a new Loader.
func NewLoader(projectDir string) *Loader {
	return &Loader{
		lookup:        os.LookupEnv,
		projectDir:    projectDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(projectDir, globalConfDir string) *Loader {
	return &Loader{
		lookup:        os.LookupEnv,
		projectDir:    projectDir,
		globalConfDir: globalConfDir,
	}
}

// WithEnv replaces the environment lookup. This is useful for testing.
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// ProjectPath returns the project config file path.
func (l *Loader) ProjectPath() string {
	return domain.ProjectConfigPath(l.projectDir)
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration: default <- global <- project <- env.
func (l *Loader) Load() (*domain.Config, error) {
	return l.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadWithOptions returns the merged configuration with options to ignore sources.
func (l *Loader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	var global, project *domain.Config
	var err error

	if !opts.IgnoreGlobal {
		global, err = l.LoadGlobal()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if !opts.IgnoreProject {
		project, err = l.LoadProject()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// Merge: default <- global <- project (later takes precedence)
	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if project != nil {
		base = mergeConfigs(base, project)
	}

	if !opts.IgnoreEnv {
		applyEnv(base, l.envLookup())
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadProject returns only the project configuration.
func (l *Loader) LoadProject() (*domain.Config, error) {
	return l.loadFile(l.ProjectPath())
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return convertRawToDomainConfig(raw), nil
}

// convertRawToDomainConfig converts the raw map to domain config and collects warnings.
func convertRawToDomainConfig(raw map[string]any) *domain.Config {
	res := &domain.Config{}
	var warnings []string

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown key: %s", section))
			continue
		}
		switch section {
		case "server":
			for k, v := range m {
				switch k {
				case "base_url":
					setString(&res.Server.BaseURL, v)
				case "deployment":
					if s, ok := v.(string); ok {
						res.Server.Deployment = domain.DeploymentMode(s)
					}
				case "push_path":
					setString(&res.Server.PushPath, v)
				case "push_url":
					setString(&res.Server.PushURL, v)
				case "push_port":
					setInt(&res.Server.PushPort, v)
				case "timeout_sec":
					setInt(&res.Server.TimeoutSec, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [server]: %s", k))
				}
			}
		case "sync":
			for k, v := range m {
				switch k {
				case "ordering":
					if s, ok := v.(string); ok {
						res.Sync.Ordering = domain.OrderingPolicy(s)
					}
				case "keepalive_interval_sec":
					setInt(&res.Sync.KeepaliveIntervalSec, v)
				case "poll_interval_ms":
					setInt(&res.Sync.PollIntervalMs, v)
				case "reconnect_base_ms":
					setInt(&res.Sync.ReconnectBaseMs, v)
				case "reconnect_max_ms":
					setInt(&res.Sync.ReconnectMaxMs, v)
				case "dismiss_delay_sec":
					setInt(&res.Sync.DismissDelaySec, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [sync]: %s", k))
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					setString(&res.Log.Level, v)
				case "dir":
					setString(&res.Log.Dir, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [log]: %s", k))
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	sort.Strings(warnings)
	res.Warnings = warnings
	return res
}

func setString(dst *string, v any) {
	if s, ok := v.(string); ok {
		*dst = s
	}
}

// setInt accepts TOML integers, which go-toml decodes as int64.
func setInt(dst *int, v any) {
	switch n := v.(type) {
	case int64:
		*dst = int(n)
	case int:
		*dst = n
	}
}

// mergeConfigs merges two configs, with override taking precedence.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := &domain.Config{
		Server:   base.Server,
		Sync:     base.Sync,
		Log:      base.Log,
		Warnings: append([]string{}, base.Warnings...),
	}
	result.Warnings = append(result.Warnings, override.Warnings...)

	if override.Server.BaseURL != "" {
		result.Server.BaseURL = override.Server.BaseURL
	}
	if override.Server.Deployment != "" {
		result.Server.Deployment = override.Server.Deployment
	}
	if override.Server.PushPath != "" {
		result.Server.PushPath = override.Server.PushPath
	}
	if override.Server.PushURL != "" {
		result.Server.PushURL = override.Server.PushURL
	}
	if override.Server.PushPort != 0 {
		result.Server.PushPort = override.Server.PushPort
	}
	if override.Server.TimeoutSec != 0 {
		result.Server.TimeoutSec = override.Server.TimeoutSec
	}
	if override.Sync.Ordering != "" {
		result.Sync.Ordering = override.Sync.Ordering
	}
	if override.Sync.KeepaliveIntervalSec != 0 {
		result.Sync.KeepaliveIntervalSec = override.Sync.KeepaliveIntervalSec
	}
	if override.Sync.PollIntervalMs != 0 {
		result.Sync.PollIntervalMs = override.Sync.PollIntervalMs
	}
	if override.Sync.ReconnectBaseMs != 0 {
		result.Sync.ReconnectBaseMs = override.Sync.ReconnectBaseMs
	}
	if override.Sync.ReconnectMaxMs != 0 {
		result.Sync.ReconnectMaxMs = override.Sync.ReconnectMaxMs
	}
	if override.Sync.DismissDelaySec != 0 {
		result.Sync.DismissDelaySec = override.Sync.DismissDelaySec
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Log.Dir != "" {
		result.Log.Dir = override.Log.Dir
	}

	return result
}
