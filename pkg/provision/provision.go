// Package provision brings directories on a Lustre filesystem into the state
// described by their intents.
//
// Every step follows the same pattern: inspect the current state, ask the
// operator before changing anything, then either run the command or, in
// dry-run mode, only report it. Steps are strictly sequential.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clusterstor-tools/clusterstor/internal/cli/output"
	"github.com/clusterstor-tools/clusterstor/internal/cli/prompt"
	"github.com/clusterstor-tools/clusterstor/internal/command"
	"github.com/clusterstor-tools/clusterstor/internal/logger"
	"github.com/clusterstor-tools/clusterstor/pkg/journal"
	"github.com/clusterstor-tools/clusterstor/pkg/lustre"
	"github.com/clusterstor-tools/clusterstor/pkg/metrics"
)

// Actions recorded in the journal and metrics.
const (
	ActionMkdir        = "mkdir"
	ActionSetDirStripe = "setdirstripe"
	ActionSetStripe    = "setstripe"
	ActionSetProject   = "project"
	ActionChown        = "chown"
	ActionChgrp        = "chgrp"
	ActionChmod        = "chmod"
	ActionSetQuota     = "setquota"
)

// Redo selects the checks re-run on directories that already exist.
type Redo struct {
	Striping   bool
	ProjectIDs bool
	Quotas     bool
	Ownerships bool
}

// Options control a provisioning run.
type Options struct {
	// DryRun reports changes without making them
	DryRun bool
	// AssumeYes answers every question with yes and never pauses
	AssumeYes bool
	// Redo re-checks existing directories
	Redo Redo
	// StrictProjectIDs requires the project ID to equal the ID of the
	// group named after the directory
	StrictProjectIDs bool
}

// Identities resolves user and group names.
type Identities interface {
	GroupID(ctx context.Context, name string) (uint32, error)
	UserID(ctx context.Context, name string) (uint32, error)
}

// Deps are the collaborators of a Provisioner. Journal and Metrics may be nil.
type Deps struct {
	Runner     command.Runner
	Identities Identities
	Confirmer  prompt.Confirmer
	Printer    *output.Printer
	Journal    *journal.Store
	Metrics    *metrics.ProvisionMetrics
	RunID      string
}

// Provisioner runs ensure steps against the filesystem.
type Provisioner struct {
	opts    Options
	runner  command.Runner
	lfs     *lustre.Client
	ids     Identities
	confirm prompt.Confirmer
	out     *output.Printer
	journal *journal.Store
	metrics *metrics.ProvisionMetrics
	runID   string
}

// New returns a Provisioner.
func New(opts Options, deps Deps) *Provisioner {
	confirm := deps.Confirmer
	if opts.AssumeYes || confirm == nil {
		confirm = prompt.AssumeYes{}
	}
	out := deps.Printer
	if out == nil {
		out = output.DefaultPrinter()
	}
	return &Provisioner{
		opts:    opts,
		runner:  deps.Runner,
		lfs:     lustre.NewClient(deps.Runner),
		ids:     deps.Identities,
		confirm: confirm,
		out:     out,
		journal: deps.Journal,
		metrics: deps.Metrics,
		runID:   deps.RunID,
	}
}

// Options returns the options of the run.
func (p *Provisioner) Options() Options {
	return p.opts
}

// change is one mutating step.
type change struct {
	action string
	path   string
	// question asked before the change
	question string
	// cmd is rendered in the journal; empty for in-process changes
	cmd string
	run func(ctx context.Context) error
}

// commandChange builds a change that runs cmd, asking the usual question.
func (p *Provisioner) commandChange(action, path, what string, cmd command.Cmd) change {
	return change{
		action:   action,
		path:     path,
		question: fmt.Sprintf("%s with the following command:\n\n%s\n\nIs this ok?", what, cmd),
		cmd:      cmd.String(),
		run: func(ctx context.Context) error {
			_, err := cmd.Run(ctx, p.runner)
			return err
		},
	}
}

// apply asks for confirmation and runs c unless dry-run is enabled. It
// reports whether the change was accepted.
func (p *Provisioner) apply(ctx context.Context, c change) (bool, error) {
	ok, err := p.confirm.Confirm(c.question, true)
	if err != nil {
		return false, err
	}
	if !ok {
		p.record(ctx, c, journal.OutcomeDeclined, nil)
		return false, nil
	}

	if p.opts.DryRun {
		logger.DebugCtx(ctx, "dry run enabled, will not change directory but will continue",
			logger.Action(c.action), logger.Path(c.path))
		p.record(ctx, c, journal.OutcomePlanned, nil)
		return true, nil
	}

	logger.InfoCtx(ctx, "changing directory", logger.Action(c.action), logger.Path(c.path))
	if err := c.run(ctx); err != nil {
		p.record(ctx, c, journal.OutcomeFailed, err)
		return false, fmt.Errorf("%s %s: %w", c.action, c.path, err)
	}
	p.record(ctx, c, journal.OutcomeApplied, nil)
	return true, nil
}

// skip counts a step whose directory was already in the desired state.
func (p *Provisioner) skip(action string) {
	p.metrics.RecordAction(action, string(journal.OutcomeSkipped))
}

func (p *Provisioner) record(ctx context.Context, c change, outcome journal.Outcome, stepErr error) {
	p.metrics.RecordAction(c.action, string(outcome))

	e := &journal.Entry{
		RunID:   p.runID,
		Time:    time.Now(),
		Action:  c.action,
		Path:    c.path,
		Command: c.cmd,
		DryRun:  p.opts.DryRun,
		Outcome: outcome,
	}
	if lc := logger.FromContext(ctx); lc != nil {
		e.Operation = lc.Operation
	}
	if stepErr != nil {
		e.Error = stepErr.Error()
	}
	if err := p.journal.Record(ctx, e); err != nil {
		logger.WarnCtx(ctx, "failed to journal step", logger.Action(c.action), logger.Path(c.path), logger.Err(err))
	}
}

// tolerate turns err into a logged message in dry-run mode. In normal mode
// err is returned unchanged.
func (p *Provisioner) tolerate(ctx context.Context, err error, path string) error {
	if err == nil || !p.opts.DryRun {
		return err
	}
	if prompt.IsAborted(err) || errors.Is(err, context.Canceled) {
		return err
	}
	logger.InfoCtx(ctx, "got an error but will continue due to dry-run", logger.Path(path), logger.Err(err))
	return nil
}

// warn prints a framed warning and logs details.
func (p *Provisioner) warn(ctx context.Context, title, msg string, args ...any) {
	p.out.Warning(title)
	logger.WarnCtx(ctx, msg, args...)
}

// pause waits for the operator after a warning.
func (p *Provisioner) pause() error {
	return p.confirm.Pause("")
}
