// Package commands implements the clusterstor CLI commands.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/cmd/clusterstor/commands/config"
)

var (
	// Version information, set by main
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Global flags
var (
	cfgFile      string
	dryRun       bool
	assumeYes    bool
	verbose      bool
	outputFormat string
	metricsFile  string
)

var rootCmd = &cobra.Command{
	Use:   "clusterstor",
	Short: "Provision Lustre project and work directories",
	Long: `clusterstor creates and maintains the directory layout of a Lustre
filesystem as described by a site configuration: department and project
directories, per-user work directories, their directory striping, file
striping, project IDs, quotas, ownership and permissions.

Every change is shown and confirmed before it is made. Runs are dry by
default; pass --dry-run=false to change the filesystem.

Use "clusterstor [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Site config file (default: $XDG_CONFIG_HOME/clusterstor/site.yaml)")
	pf.BoolVar(&dryRun, "dry-run", true, "Show what would be done without changing anything")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every question")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&outputFormat, "output", "o", "table", "Output format for reports (table|json|yaml)")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile (overrides metrics.textfile)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(workdirsCmd)
	rootCmd.AddCommand(workdirCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(versionCmd)
}
