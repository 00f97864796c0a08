package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/cli/output"
	"github.com/clusterstor-tools/clusterstor/internal/cli/prompt"
	"github.com/clusterstor-tools/clusterstor/pkg/config"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

var (
	setQuotaDepartment string
	setQuotaProject    string
	setQuotaUser       string
	setQuotaBytes      string
	setQuotaInodes     string
)

var setQuotaCmd = &cobra.Command{
	Use:   "set-quota",
	Short: "Set a project or work directory quota override",
	Long: `Set the quota override of a project or of a user's work directory in the
site configuration file. Comments and the order of other entries are kept.

Quotas are written to the configuration only; run "clusterstor projects
--redo-quotas" or "clusterstor workdirs --redo-quotas" to apply them.

When neither --byte-quota nor --inode-quota is given, both are asked for.

Examples:
  # Raise the byte quota of a project
  clusterstor config set-quota --department physics --project lhc --byte-quota 20T --dry-run=false

  # Set both limits of a work directory
  clusterstor config set-quota --user alice --byte-quota 2T --inode-quota 2M --dry-run=false`,
	Args: cobra.NoArgs,
	RunE: runSetQuota,
}

func init() {
	f := setQuotaCmd.Flags()
	f.StringVar(&setQuotaDepartment, "department", "", "Department of the project")
	f.StringVar(&setQuotaProject, "project", "", "Project name")
	f.StringVar(&setQuotaUser, "user", "", "Work directory user")
	f.StringVar(&setQuotaBytes, "byte-quota", "", "Byte quota, e.g. 10T (0 for unlimited)")
	f.StringVar(&setQuotaInodes, "inode-quota", "", "Inode quota, e.g. 1M (0 for unlimited)")
	setQuotaCmd.MarkFlagsRequiredTogether("department", "project")
	setQuotaCmd.MarkFlagsMutuallyExclusive("user", "project")
	setQuotaCmd.MarkFlagsOneRequired("user", "project")
}

func runSetQuota(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	// Load first so that only a valid configuration is edited
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	var confirm prompt.Confirmer = prompt.AssumeYes{}
	if !assumeYes {
		confirm = prompt.NewTerminal()
	}

	override := quota.Override{Bytes: setQuotaBytes, Inodes: setQuotaInodes}
	if override.Bytes == "" && override.Inodes == "" {
		t, ok := confirm.(*prompt.Terminal)
		if !ok {
			return fmt.Errorf("%w: --byte-quota or --inode-quota is required with --yes", quota.ErrInvalidQuota)
		}
		if override, err = askOverride(t); err != nil {
			return err
		}
	}

	doc, err := config.OpenDocument(cfg.Path)
	if err != nil {
		return err
	}

	var target string
	if setQuotaUser != "" {
		target = fmt.Sprintf("work directory of '%s'", setQuotaUser)
		err = doc.SetWorkDirQuota(setQuotaUser, override)
	} else {
		if _, ok := cfg.Department(setQuotaDepartment); !ok {
			return fmt.Errorf("department '%s' is not in %s", setQuotaDepartment, cfg.Path)
		}
		target = fmt.Sprintf("project '%s'", setQuotaProject)
		err = doc.SetProjectQuota(setQuotaDepartment, setQuotaProject, override)
	}
	if err != nil {
		return err
	}
	if err := doc.Check(cfg); err != nil {
		return err
	}

	out := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, false)
	if dryRun {
		data, err := doc.Bytes()
		if err != nil {
			return err
		}
		out.SubHeader(fmt.Sprintf("New content of %s", doc.Path()))
		out.Println(string(data))
	}

	written, err := doc.Write(cmd.Context(), config.WriteOptions{DryRun: dryRun, Confirm: confirm})
	if err != nil {
		return err
	}
	switch {
	case !written:
		return prompt.ErrAborted
	case dryRun:
		out.Printf("Dry run: quota of %s not written\n", target)
		return nil
	}

	out.Success(fmt.Sprintf("Quota of %s set", target))
	return nil
}

// askOverride prompts for both quota values.
func askOverride(t *prompt.Terminal) (quota.Override, error) {
	validate := func(s string) error {
		if s != "" && !quota.Valid(s) {
			return errors.New("expected a number with optional k/M/G/T/P/E suffix")
		}
		return nil
	}
	bytes, err := t.InputWithValidation("Byte quota (empty to keep)", "", validate)
	if err != nil {
		return quota.Override{}, err
	}
	inodes, err := t.InputWithValidation("Inode quota (empty to keep)", "", validate)
	if err != nil {
		return quota.Override{}, err
	}
	return quota.Override{Bytes: bytes, Inodes: inodes}, nil
}
