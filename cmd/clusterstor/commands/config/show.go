package config

import (
	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/cli/output"
	"github.com/clusterstor-tools/clusterstor/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the loaded site configuration",
	Long: `Display the site configuration after environment overrides and defaults
are applied, with every project and work directory quota resolved.

By default outputs YAML format. Use --output json for JSON.

Examples:
  clusterstor config show
  clusterstor config show --output json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// resolved is the loaded configuration with effective quotas.
type resolved struct {
	Config   *config.Config               `json:"config" yaml:"config"`
	Projects map[string]map[string]string `json:"projects" yaml:"projects"`
	WorkDirs map[string]string            `json:"work_dirs" yaml:"work_dirs"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	formatName, _ := cmd.Flags().GetString("output")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	r := resolved{
		Config:   cfg,
		Projects: make(map[string]map[string]string, len(cfg.ProjectDirs)),
		WorkDirs: make(map[string]string, len(cfg.WorkDirs)),
	}
	for _, d := range cfg.ProjectDirs {
		m := make(map[string]string, len(d.Projects))
		for _, p := range d.Projects {
			m[p.Name] = cfg.ProjectQuota(p).String()
		}
		r.Projects[d.Name] = m
	}
	for user := range cfg.WorkDirs {
		r.WorkDirs[user] = cfg.WorkDirQuota(user).String()
	}

	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), r)
	}
	return output.PrintYAML(cmd.OutOrStdout(), r)
}
