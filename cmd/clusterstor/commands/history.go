package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/cli/timeutil"
	"github.com/clusterstor-tools/clusterstor/pkg/journal"
)

var (
	historyLimit   int
	historyPath    string
	historyRun     string
	historyOutcome string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled provisioning steps",
	Long: `List the steps recorded in the journal, newest first.

The journal must be enabled in the site configuration.

Examples:
  clusterstor history --limit 20
  clusterstor history --path /scratch/physics/lhc
  clusterstor history --outcome failed -o json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of entries (0 for all)")
	historyCmd.Flags().StringVar(&historyPath, "path", "", "Only entries for this directory")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Only entries of this run ID")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "Only entries with this outcome (applied|planned|declined|failed)")
}

// entries renders journal entries as a table.
type entries []journal.Entry

// Headers implements output.TableRenderer.
func (es entries) Headers() []string {
	return []string{"TIME", "AGE", "RUN", "ACTION", "PATH", "OUTCOME", "DRY RUN", "COMMAND"}
}

// Rows implements output.TableRenderer.
func (es entries) Rows() [][]string {
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		dry := "no"
		if e.DryRun {
			dry = "yes"
		}
		outcome := string(e.Outcome)
		if e.Error != "" {
			outcome += ": " + e.Error
		}
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		rows = append(rows, []string{
			timeutil.FormatTime(e.Time), timeutil.FormatAge(e.Time), run, e.Action, e.Path, outcome, dry, dash(e.Command),
		})
	}
	return rows
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{operation: "history"})
	if err != nil {
		return err
	}
	defer s.close()

	store, err := journal.Open(&s.cfg.Journal)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("journal is disabled in the site configuration")
	}
	defer func() { _ = store.Close() }()

	list, err := store.List(s.ctx, journal.Filter{
		Limit:   historyLimit,
		Path:    historyPath,
		RunID:   historyRun,
		Outcome: journal.Outcome(historyOutcome),
	})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		s.out.Println("No journal entries.")
		return nil
	}
	return s.out.Print(entries(list))
}
