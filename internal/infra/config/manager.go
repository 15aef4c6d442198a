package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	projectDir    string // Directory holding .adr-sync.toml
	globalConfDir string // Path to global config directory (e.g., ~/.config/adr-sync)
}

// NewManager creates a new Manager.
func NewManager(projectDir string) *Manager {
	return &Manager{
		projectDir:    projectDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(projectDir, globalConfDir string) *Manager {
	return &Manager{
		projectDir:    projectDir,
		globalConfDir: globalConfDir,
	}
}

// ProjectConfigInfo returns information about the project config file.
func (m *Manager) ProjectConfigInfo() domain.ConfigInfo {
	return m.configInfo(domain.ProjectConfigPath(m.projectDir))
}

// GlobalConfigInfo returns information about the global config file.
func (m *Manager) GlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return m.configInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

func (m *Manager) configInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitProjectConfig creates the project config file from the template.
func (m *Manager) InitProjectConfig(cfg *domain.Config) error {
	return m.initConfig(domain.ProjectConfigPath(m.projectDir), cfg)
}

// InitGlobalConfig creates the global config file from the template.
func (m *Manager) InitGlobalConfig(cfg *domain.Config) error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return err
	}
	return m.initConfig(filepath.Join(m.globalConfDir, domain.ConfigFileName), cfg)
}

// initConfig creates a config file with default template.
func (m *Manager) initConfig(path string, cfg *domain.Config) error {
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}
	content := domain.RenderConfigTemplate(cfg)
	return os.WriteFile(path, []byte(content), 0o600)
}
