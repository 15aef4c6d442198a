package usecase

import (
	"context"

	"github.com/runoshun/adr-sync/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	Options domain.LoadConfigOptions
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Effective     *domain.Config    // Merged configuration
	GlobalConfig  domain.ConfigInfo // Global config file info
	ProjectConfig domain.ConfigInfo // Project config file info
	PushURL       string            // Resolved push channel URL
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	configLoader  domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager, configLoader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		configLoader:  configLoader,
	}
}

// Execute retrieves configuration file information and the merged result.
func (uc *ShowConfig) Execute(_ context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.configLoader.LoadWithOptions(in.Options)
	if err != nil {
		return nil, err
	}
	pushURL, err := cfg.Server.ResolvePushURL()
	if err != nil {
		return nil, err
	}
	return &ShowConfigOutput{
		Effective:     cfg,
		GlobalConfig:  uc.configManager.GlobalConfigInfo(),
		ProjectConfig: uc.configManager.ProjectConfigInfo(),
		PushURL:       pushURL,
	}, nil
}
