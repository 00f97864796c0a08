package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/provision"
)

var statusCmd = &cobra.Command{
	Use:   "status projects|workdirs",
	Short: "Verify managed directories without changing them",
	Long: `Compare every managed directory with the site configuration and report
each aspect: existence, directory striping, file striping, project ID, owner,
group, permissions, quota and current usage.

Nothing is changed and no question is asked. The command fails when any
aspect differs.

Examples:
  clusterstor status projects
  clusterstor status workdirs -o json
  clusterstor status projects --strict-project-ids`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{targetProjects, targetWorkDirs},
	RunE:      runStatus,
}

var statusStrict bool

func init() {
	statusCmd.Flags().BoolVar(&statusStrict, "strict-project-ids", false, "Require project IDs to equal the GID of the directory name")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{operation: "status", strict: statusStrict})
	if err != nil {
		return err
	}
	defer s.close()

	dirs, err := s.targets(args[0])
	if err != nil {
		return err
	}

	reports := make(provision.Reports, 0, len(dirs))
	failed := 0
	for _, d := range dirs {
		r, err := s.prov.Status(s.ctx, d)
		if err != nil {
			return err
		}
		if !r.OK() {
			failed++
		}
		reports = append(reports, r)
	}

	if err := s.out.Print(reports); err != nil {
		return err
	}
	logger.InfoCtx(s.ctx, "status checked", logger.Count(len(reports)))
	if failed > 0 {
		return fmt.Errorf("%d of %d directories differ from the site configuration", failed, len(reports))
	}
	return nil
}
