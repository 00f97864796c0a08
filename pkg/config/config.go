package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/clusterstor-tools/clusterstor/pkg/journal"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// Config represents the clusterstor site configuration.
//
// The site configuration describes the Lustre filesystem layout to enforce:
//   - Defaults shared by every directory (mountpoint, striping, quotas)
//   - Project directories grouped by department, with quota overrides
//   - Per-user work directory quota overrides
//   - Logging, journal and metrics settings of the tool itself
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (CLUSTERSTOR_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Defaults holds the site-wide settings every directory is derived from
	Defaults Defaults `mapstructure:"defaults" yaml:"defaults" json:"defaults"`

	// ProjectDirs lists departments and their projects in document order.
	// Names are case-sensitive so this section is decoded from the raw
	// document rather than through viper.
	ProjectDirs []Department `mapstructure:"-" yaml:"-" json:"-"`

	// WorkDirs maps user names to work directory quota overrides
	WorkDirs map[string]quota.Override `mapstructure:"-" yaml:"-" json:"-"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// Journal configures the audit trail of provisioning steps
	Journal journal.Config `mapstructure:"journal" yaml:"journal" json:"journal"`

	// Metrics configures the Prometheus textfile export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// StripeReference is the content of Defaults.StripeParameterReference,
	// read during Load.
	StripeReference string `mapstructure:"-" yaml:"-" json:"-"`

	// Path is the file the configuration was loaded from
	Path string `mapstructure:"-" yaml:"-" json:"-"`
}

// Defaults holds the site-wide settings.
type Defaults struct {
	// Mountpoint is the Lustre client mountpoint, e.g. /scratch
	Mountpoint string `mapstructure:"mountpoint" validate:"required,dir" yaml:"mountpoint" json:"mountpoint"`

	// UsersGroup is the group whose members get a work directory
	UsersGroup string `mapstructure:"users_group" validate:"required" yaml:"users_group" json:"users_group"`

	// WorkDirName is the directory below the mountpoint holding work directories
	WorkDirName string `mapstructure:"work_dir_name" validate:"required" yaml:"work_dir_name" json:"work_dir_name"`

	// DirStripeCount is the number of MDTs department and work roots are striped over
	DirStripeCount int `mapstructure:"dirstripe_count" validate:"required,min=1" yaml:"dirstripe_count" json:"dirstripe_count"`

	// StripeParameterReference is a file holding the expected output of
	// lfs getstripe -d --yaml for a correctly striped directory
	StripeParameterReference string `mapstructure:"stripe_parameter_reference" validate:"required,file" yaml:"stripe_parameter_reference" json:"stripe_parameter_reference"`

	// StripeParameters are the lfs setstripe arguments, e.g. "-E 64K -L mdt -E -1 -c 1"
	StripeParameters string `mapstructure:"stripe_parameters" validate:"required" yaml:"stripe_parameters" json:"stripe_parameters"`

	// DefaultQuotas are applied where no override exists
	DefaultQuotas DefaultQuotas `mapstructure:"default_quotas" yaml:"default_quotas" json:"default_quotas"`
}

// DefaultQuotas holds the default quota of each directory kind.
type DefaultQuotas struct {
	Projects quota.Quota `mapstructure:"projects" yaml:"projects" json:"projects"`
	Workdir  quota.Quota `mapstructure:"workdir" yaml:"workdir" json:"workdir"`
}

// Department is a project_dirs entry.
type Department struct {
	Name     string
	Projects []Project
}

// Project is a project directory with its quota override.
type Project struct {
	Name  string
	Quota quota.Override
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level" json:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format" json:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus textfile export.
// When Textfile is empty no metrics are collected.
type MetricsConfig struct {
	// Textfile is written at the end of every run, for the node exporter
	// textfile collector
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty" json:"textfile,omitempty"`
}

// envKeys are the settings that can be overridden from the environment,
// e.g. CLUSTERSTOR_DEFAULTS_MOUNTPOINT=/lustre.
var envKeys = []string{
	"defaults.mountpoint",
	"defaults.users_group",
	"defaults.work_dir_name",
	"defaults.dirstripe_count",
	"defaults.stripe_parameter_reference",
	"defaults.stripe_parameters",
	"logging.level",
	"logging.format",
	"logging.output",
	"journal.enabled",
	"journal.type",
	"journal.sqlite.path",
	"journal.postgres.host",
	"journal.postgres.port",
	"journal.postgres.database",
	"journal.postgres.user",
	"journal.postgres.password",
	"metrics.textfile",
}

// Load loads configuration from file, environment, and defaults.
//
// Unlike a service configuration, a site configuration has no useful
// defaults for the filesystem layout, so a missing file is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	path := v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decodeSections(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	ref, err := os.ReadFile(cfg.Defaults.StripeParameterReference)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe parameter reference: %w", err)
	}
	cfg.StripeReference = string(ref)

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no site configuration found at default location: %s\n\n"+
				"Please create one, starting from the documented example:\n"+
				"  clusterstor config schema > site.schema.json\n\n"+
				"Or specify a custom config file:\n"+
				"  clusterstor <command> --config /path/to/site.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CLUSTERSTOR_ prefix and underscores
	// Example: CLUSTERSTOR_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CLUSTERSTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/clusterstor/site.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("site")
		v.SetConfigType("yaml")
	}
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		quotaDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// quotaDecodeHook returns a mapstructure decode hook that converts quota
// mappings to quota.Quota. Both keys are required and numbers are accepted,
// so "inode_quota: 100000" and "inode_quota: 100k" both decode.
func quotaDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(quota.Quota{}) {
			return data, nil
		}

		switch v := data.(type) {
		case map[string]interface{}:
			return quota.FromMap(v)
		case map[interface{}]interface{}:
			m := make(map[string]interface{}, len(v))
			for k, val := range v {
				m[fmt.Sprint(k)] = val
			}
			return quota.FromMap(m)
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "clusterstor")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "clusterstor")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "site.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// Department returns the department with the given name.
func (c *Config) Department(name string) (Department, bool) {
	for _, d := range c.ProjectDirs {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}

// WorkDirQuota returns the work directory quota of user with overrides applied.
func (c *Config) WorkDirQuota(user string) quota.Quota {
	return quota.Merge(c.WorkDirs[user], c.Defaults.DefaultQuotas.Workdir)
}

// ProjectQuota returns the quota of a project with overrides applied.
func (c *Config) ProjectQuota(p Project) quota.Quota {
	return quota.Merge(p.Quota, c.Defaults.DefaultQuotas.Projects)
}
