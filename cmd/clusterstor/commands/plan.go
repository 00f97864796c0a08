package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/pkg/intent"
)

// Targets accepted by plan and status.
const (
	targetProjects = "projects"
	targetWorkDirs = "workdirs"
)

var planCmd = &cobra.Command{
	Use:   "plan projects|workdirs",
	Short: "Show the directories derived from the site configuration",
	Long: `Print the desired state of every managed directory without touching the
filesystem: path, owner, group, permissions, directory striping and quota.

Examples:
  clusterstor plan projects
  clusterstor plan workdirs -o yaml`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{targetProjects, targetWorkDirs},
	RunE:      runPlan,
}

// intents renders directory intents as a table.
type intents []intent.DirIntent

// Headers implements output.TableRenderer.
func (is intents) Headers() []string {
	return []string{"KIND", "PATH", "OWNER", "GROUP", "PERMISSIONS", "DIRSTRIPE", "QUOTA"}
}

// Rows implements output.TableRenderer.
func (is intents) Rows() [][]string {
	rows := make([][]string, 0, len(is))
	for _, d := range is {
		dirstripe, q := "-", "-"
		if d.Striped() {
			dirstripe = strconv.Itoa(d.DirStripeCount)
		}
		if d.Leaf() {
			q = d.Quota.String()
		}
		rows = append(rows, []string{
			string(d.Kind), d.Path, dash(d.Owner), dash(d.Group), dash(d.Permissions), dirstripe, q,
		})
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runPlan(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{operation: "plan"})
	if err != nil {
		return err
	}
	defer s.close()

	dirs, err := s.targets(args[0])
	if err != nil {
		return err
	}
	return s.out.Print(intents(dirs))
}

// targets returns the directories of a target in provisioning order.
func (s *session) targets(target string) ([]intent.DirIntent, error) {
	switch target {
	case targetProjects:
		projects, err := s.builder.Projects(intent.Filter{})
		if err != nil {
			return nil, err
		}
		return append(s.builder.Departments(intent.Filter{}), projects...), nil
	case targetWorkDirs:
		dirs, err := s.builder.WorkDirs(s.ctx)
		if err != nil {
			return nil, err
		}
		return append([]intent.DirIntent{s.builder.WorkRoot()}, dirs...), nil
	default:
		return nil, fmt.Errorf("unknown target %q (want %s or %s)", target, targetProjects, targetWorkDirs)
	}
}
