package commands

import (
	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/pkg/intent"
)

var (
	projectsDepartment string
	projectsProject    string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Create and fix department and project directories",
	Long: `Ensure every department and project directory of the site configuration.

Department directories are created dirstriped over the configured number of
MDTs. Project directories get file striping, a project ID, a project quota,
the project group and permissions 2770. Existing directories are only
re-checked for the aspects selected with the --redo-* flags.

Examples:
  # Show what would be done for every project
  clusterstor projects

  # Create a single project
  clusterstor projects --department physics --project lhc --dry-run=false

  # Re-check quotas of every project of a department
  clusterstor projects --department physics --redo-quotas --dry-run=false`,
	Args: cobra.NoArgs,
	RunE: runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsDepartment, "department", "", "Only this department")
	projectsCmd.Flags().StringVar(&projectsProject, "project", "", "Only this project")
	addRedoFlags(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, redo.options("projects"))
	if err != nil {
		return err
	}
	defer s.close()

	filter := intent.Filter{Department: projectsDepartment, Project: projectsProject}
	projects, err := s.builder.Projects(filter)
	if err != nil {
		return err
	}

	s.banner()
	if err := s.run("Department directories", s.builder.Departments(filter)); err != nil {
		return err
	}
	return s.run("Project directories", projects)
}
