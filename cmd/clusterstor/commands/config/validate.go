package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/cli/output"
	"github.com/clusterstor-tools/clusterstor/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the site configuration",
	Long: `Validate the clusterstor site configuration.

Checks for syntax errors, missing required fields, invalid names and quotas,
and reads the stripe parameter reference.

Examples:
  # Validate default config
  clusterstor config validate

  # Validate specific config file
  clusterstor config validate --config /etc/clusterstor/site.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	var warnings []string
	if len(cfg.ProjectDirs) == 0 {
		warnings = append(warnings, "no project directories configured")
	}
	for _, d := range cfg.ProjectDirs {
		if len(d.Projects) == 0 {
			warnings = append(warnings, fmt.Sprintf("department '%s' has no projects", d.Name))
		}
	}
	if !cfg.Journal.Enabled {
		warnings = append(warnings, "journal disabled, changes will not be recorded")
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Configuration file: %s\n", cfg.Path)
	_, _ = fmt.Fprintln(w, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range warnings {
			_, _ = fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	projects := 0
	for _, d := range cfg.ProjectDirs {
		projects += len(d.Projects)
	}

	_, _ = fmt.Fprintf(w, "\nConfiguration summary:\n")
	return output.SimpleTable(w, [][2]string{
		{"Mountpoint", cfg.Defaults.Mountpoint},
		{"Users group", cfg.Defaults.UsersGroup},
		{"Work root", cfg.Defaults.WorkDirName},
		{"Dirstripe count", strconv.Itoa(cfg.Defaults.DirStripeCount)},
		{"Departments", strconv.Itoa(len(cfg.ProjectDirs))},
		{"Projects", strconv.Itoa(projects)},
		{"Work dir overrides", strconv.Itoa(len(cfg.WorkDirs))},
		{"Project quota", cfg.Defaults.DefaultQuotas.Projects.String()},
		{"Work dir quota", cfg.Defaults.DefaultQuotas.Workdir.String()},
		{"Log level", cfg.Logging.Level},
	})
}
