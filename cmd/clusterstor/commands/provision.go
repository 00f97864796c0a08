package commands

import (
	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/intent"
	"github.com/clusterstor-tools/clusterstor/pkg/provision"
)

// redoFlags are shared by every provisioning command.
type redoFlags struct {
	striping   bool
	projectIDs bool
	quotas     bool
	ownerships bool
	strict     bool
}

var redo redoFlags

func addRedoFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&redo.striping, "redo-striping", false, "Re-check striping of existing directories")
	f.BoolVar(&redo.projectIDs, "redo-project-ids", false, "Re-check project IDs of existing directories")
	f.BoolVar(&redo.quotas, "redo-quotas", false, "Re-check quotas of existing directories")
	f.BoolVar(&redo.ownerships, "redo-ownerships", false, "Re-apply owner, group and permissions of existing directories")
	f.BoolVar(&redo.strict, "strict-project-ids", false, "Require project IDs to equal the GID of the directory name")
}

func (r redoFlags) options(operation string) sessionOptions {
	return sessionOptions{
		operation: operation,
		record:    true,
		redo: provision.Redo{
			Striping:   r.striping,
			ProjectIDs: r.projectIDs,
			Quotas:     r.quotas,
			Ownerships: r.ownerships,
		},
		strict: r.strict,
	}
}

// run provisions dirs in order under a section header.
func (s *session) run(header string, dirs []intent.DirIntent) error {
	if len(dirs) == 0 {
		return nil
	}
	s.out.Header(header)
	logger.InfoCtx(s.ctx, "provisioning", logger.Kind(string(dirs[0].Kind)), logger.Count(len(dirs)))
	return s.prov.All(s.ctx, dirs)
}
