package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ProjectConfigInfo(t *testing.T) {
	projectDir := t.TempDir()
	m := NewManagerWithGlobalDir(projectDir, t.TempDir())

	info := m.ProjectConfigInfo()
	assert.Equal(t, domain.ProjectConfigPath(projectDir), info.Path)
	assert.False(t, info.Exists)

	content := "[log]\nlevel = \"debug\"\n"
	require.NoError(t, os.WriteFile(info.Path, []byte(content), 0o644))

	info = m.ProjectConfigInfo()
	assert.True(t, info.Exists)
	assert.Equal(t, content, info.Content)
}

func TestManager_GlobalConfigInfo_NoDir(t *testing.T) {
	m := NewManagerWithGlobalDir(t.TempDir(), "")
	assert.Equal(t, domain.ConfigInfo{}, m.GlobalConfigInfo())
	assert.Error(t, m.InitGlobalConfig(domain.NewDefaultConfig()))
}

func TestManager_InitProjectConfig(t *testing.T) {
	projectDir := t.TempDir()
	m := NewManagerWithGlobalDir(projectDir, t.TempDir())

	require.NoError(t, m.InitProjectConfig(domain.NewDefaultConfig()))
	assert.ErrorIs(t, m.InitProjectConfig(domain.NewDefaultConfig()), domain.ErrConfigExists)

	// The written template loads back to the defaults without warnings.
	cfg, err := NewLoaderWithGlobalDir(projectDir, t.TempDir()).WithEnv(noEnv).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, domain.DefaultBaseURL, cfg.Server.BaseURL)
}

func TestManager_InitGlobalConfig_CreatesDir(t *testing.T) {
	globalDir := filepath.Join(t.TempDir(), "nested", "adr-sync")
	m := NewManagerWithGlobalDir(t.TempDir(), globalDir)

	require.NoError(t, m.InitGlobalConfig(domain.NewDefaultConfig()))
	info := m.GlobalConfigInfo()
	assert.True(t, info.Exists)
	assert.Contains(t, info.Content, "[sync]")
}
