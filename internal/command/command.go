// Package command runs external programs and captures their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/clusterstor-tools/clusterstor/internal/logger"
)

// Runner executes an external program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExitError is returned when a program exits unsuccessfully.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q failed", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Cmd is a program invocation built ahead of time so that it can be shown
// to the operator before it runs.
type Cmd struct {
	Name string
	Args []string
}

// New returns a Cmd for name and args.
func New(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// String renders the command line.
func (c Cmd) String() string {
	return Render(c.Name, c.Args...)
}

// Run executes the command with r.
func (c Cmd) Run(ctx context.Context, r Runner) (string, error) {
	return r.Run(ctx, c.Name, c.Args...)
}

// Render returns a shell-quoted command line for prompts and logs.
func Render(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

// Split parses an argument string with shell quoting rules.
func Split(s string) ([]string, error) {
	return shellquote.Split(s)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Env, when set, replaces the environment of the child process.
	Env []string
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	line := Render(name, args...)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	logger.DebugCtx(ctx, "command finished",
		logger.Command(line),
		logger.DurationMs(logger.Duration(start)),
		logger.Err(err),
	)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.String(), &ExitError{
			Command:  line,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return stdout.String(), nil
}
