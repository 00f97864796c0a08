package config

import (
	"strings"

	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Only the tool's own settings have defaults; the filesystem layout under
// Defaults must be spelled out in the site configuration.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyJournalDefaults(cfg)
	if cfg.WorkDirs == nil {
		cfg.WorkDirs = make(map[string]quota.Override)
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyJournalDefaults sets journal database defaults.
func applyJournalDefaults(cfg *Config) {
	cfg.Journal.ApplyDefaults()
}
