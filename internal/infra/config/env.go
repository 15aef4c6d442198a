package config

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Environment variables that override file configuration.
const (
	EnvBaseURL      = "ADR_SYNC_BASE_URL"
	EnvPushURL      = "ADR_SYNC_PUSH_URL"
	EnvLogLevel     = "ADR_SYNC_LOG_LEVEL"
	EnvDismissDelay = "ADR_SYNC_DISMISS_DELAY_SEC"
)

// envLookup returns a lookup that consults the process environment first
// and falls back to the project's .env file. The .env file never changes
// the process environment.
func (l *Loader) envLookup() func(string) (string, bool) {
	dotenv, err := godotenv.Read(filepath.Join(l.projectDir, domain.EnvFileName))
	if err != nil {
		dotenv = nil
	}
	return func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// applyEnv applies environment overrides to cfg. Values that cannot be
// parsed are reported as warnings and ignored.
func applyEnv(cfg *domain.Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		cfg.Server.BaseURL = v
	}
	if v, ok := lookup(EnvPushURL); ok && v != "" {
		cfg.Server.PushURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvDismissDelay); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", EnvDismissDelay, v))
		} else {
			cfg.Sync.DismissDelaySec = n
		}
	}
}
