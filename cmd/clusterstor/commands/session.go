package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/clusterstor-tools/clusterstor/internal/cli/output"
	"github.com/clusterstor-tools/clusterstor/internal/cli/prompt"
	"github.com/clusterstor-tools/clusterstor/internal/cli/timeutil"
	"github.com/clusterstor-tools/clusterstor/internal/command"
	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/config"
	"github.com/clusterstor-tools/clusterstor/pkg/intent"
	"github.com/clusterstor-tools/clusterstor/pkg/journal"
	"github.com/clusterstor-tools/clusterstor/pkg/metrics"
	"github.com/clusterstor-tools/clusterstor/pkg/posix"
	"github.com/clusterstor-tools/clusterstor/pkg/provision"
)

// session holds everything a command needs for one run.
type session struct {
	ctx         context.Context
	cfg         *config.Config
	out         *output.Printer
	builder     *intent.Builder
	prov        *provision.Provisioner
	journal     *journal.Store
	metrics     *metrics.ProvisionMetrics
	metricsFile string
	runID       string
	record      bool
}

// sessionOptions select the parts of a session a command uses.
type sessionOptions struct {
	// operation names the run in logs and the journal
	operation string
	// record opens the journal and metrics
	record bool
	// redo and strict are passed to the provisioner
	redo   provision.Redo
	strict bool
}

// setup hooks for tests
var (
	newRunner            = func() command.Runner { return command.NewExecRunner() }
	newConfirm           = func() prompt.Confirmer { return prompt.NewTerminal() }
	stdout     io.Writer = os.Stdout
)

func newSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	cfg, err := config.MustLoad(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if verbose {
		logCfg.Level = "DEBUG"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	color := false
	if f, ok := stdout.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	out := output.NewPrinter(stdout, format, color)

	runID := uuid.NewString()
	lc := logger.NewLogContext(runID).WithOperation(opts.operation).WithDryRun(dryRun)
	ctx := logger.WithContext(cmd.Context(), lc)

	runner := newRunner()
	resolver, err := posix.NewResolver(runner, posix.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	s := &session{
		ctx:     ctx,
		cfg:     cfg,
		out:     out,
		builder: intent.NewBuilder(cfg, resolver),
		runID:   runID,
		record:  opts.record,
	}

	if opts.record {
		s.journal, err = journal.Open(&cfg.Journal)
		if err != nil {
			return nil, err
		}

		s.metricsFile = metricsFile
		if s.metricsFile == "" {
			s.metricsFile = cfg.Metrics.Textfile
		}
		if s.metricsFile != "" {
			metrics.InitRegistry()
			s.metrics = metrics.NewProvisionMetrics()
		}
	}

	s.prov = provision.New(provision.Options{
		DryRun:           dryRun,
		AssumeYes:        assumeYes,
		Redo:             opts.redo,
		StrictProjectIDs: opts.strict,
	}, provision.Deps{
		Runner:     runner,
		Identities: resolver,
		Confirmer:  newConfirm(),
		Printer:    out,
		Journal:    s.journal,
		Metrics:    s.metrics,
		RunID:      runID,
	})

	logger.DebugCtx(ctx, "session started", logger.ConfigFile(cfg.Path), logger.RunID(runID), logger.DryRun(dryRun))
	return s, nil
}

// banner reminds the operator that nothing will change.
func (s *session) banner() {
	if dryRun {
		s.out.Warning("dry run enabled, no changes will be made (use --dry-run=false to apply)")
	}
}

// close flushes metrics and closes the journal.
func (s *session) close() {
	if s.metrics != nil {
		s.metrics.MarkRun(time.Now())
		if err := metrics.WriteTextfile(s.metricsFile); err != nil {
			logger.WarnCtx(s.ctx, "metrics not written", logger.Err(err))
		}
	}
	if err := s.journal.Close(); err != nil {
		logger.WarnCtx(s.ctx, "journal close failed", logger.Err(err))
	}
	if lc := logger.FromContext(s.ctx); lc != nil {
		logger.DebugCtx(s.ctx, "session finished", logger.DurationMs(lc.DurationMs()))
		if s.record {
			s.out.Printf("\nRun %s finished in %s\n", s.runID, timeutil.FormatDuration(time.Since(lc.StartTime)))
		}
	}
}
