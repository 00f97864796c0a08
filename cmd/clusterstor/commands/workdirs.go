package commands

import (
	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/pkg/intent"
)

var workdirsCmd = &cobra.Command{
	Use:   "workdirs",
	Short: "Create and fix the work directories of all users",
	Long: `Ensure a work directory for every member of the users group.

The work root is created dirstriped below the mountpoint. Each work directory
is owned by its user and group, has permissions 2700, file striping, a project
ID and a project quota.

Examples:
  # Show what would be done
  clusterstor workdirs

  # Re-apply ownership of every work directory without questions
  clusterstor workdirs --redo-ownerships --dry-run=false -y`,
	Args: cobra.NoArgs,
	RunE: runWorkDirs,
}

var workdirCmd = &cobra.Command{
	Use:   "workdir USER",
	Short: "Create and fix the work directory of one user",
	Long: `Ensure the work directory of a single user, who must exist.

Examples:
  clusterstor workdir alice --dry-run=false`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkDir,
}

func init() {
	addRedoFlags(workdirsCmd)
	addRedoFlags(workdirCmd)
}

func runWorkDirs(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, redo.options("workdirs"))
	if err != nil {
		return err
	}
	defer s.close()

	dirs, err := s.builder.WorkDirs(s.ctx)
	if err != nil {
		return err
	}

	s.banner()
	if err := s.run("Work root", []intent.DirIntent{s.builder.WorkRoot()}); err != nil {
		return err
	}
	return s.run("Work directories", dirs)
}

func runWorkDir(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, redo.options("workdir"))
	if err != nil {
		return err
	}
	defer s.close()

	d, err := s.builder.WorkDir(s.ctx, args[0])
	if err != nil {
		return err
	}

	s.banner()
	if err := s.run("Work root", []intent.DirIntent{s.builder.WorkRoot()}); err != nil {
		return err
	}
	return s.run("Work directories", []intent.DirIntent{d})
}
