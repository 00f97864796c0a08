// Package config implements the site configuration subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Site configuration management",
	Long: `Manage the clusterstor site configuration.

Subcommands:
  validate   Validate the site configuration
  show       Display the loaded site configuration
  schema     Generate JSON schema for IDE/validation
  set-quota  Set a project or work directory quota override`,
}

func init() {
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(setQuotaCmd)
}
