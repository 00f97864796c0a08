// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirmer asks the operator before a mutating step is executed.
type Confirmer interface {
	// Confirm asks a yes/no question. Unrecognised answers yield defaultYes.
	// Returns ErrAborted if the user presses Ctrl+C.
	Confirm(label string, defaultYes bool) (bool, error)
	// Pause blocks until the operator presses RETURN.
	Pause(label string) error
}

// Terminal is the interactive Confirmer backed by promptui.
// Nil Stdin/Stdout mean the process terminal.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewTerminal returns a Confirmer reading from the controlling terminal.
func NewTerminal() *Terminal {
	return &Terminal{}
}

// Confirm prompts the user for yes/no confirmation.
func (t *Terminal) Confirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	p := promptui.Prompt{
		Label:  fmt.Sprintf("%s [%s]", label, defaultStr),
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}

	result, err := p.Run()
	if err != nil {
		if IsAborted(err) {
			return false, ErrAborted
		}
		return false, err
	}

	return ParseAnswer(result, defaultYes), nil
}

// Pause waits for RETURN.
func (t *Terminal) Pause(label string) error {
	if label == "" {
		label = "Press RETURN to continue"
	}
	p := promptui.Prompt{
		Label:  label,
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}
	_, err := p.Run()
	return wrapError(err)
}

// ParseAnswer interprets a yes/no answer. y, yes, t, true, on and 1 are
// yes; n, no, f, false, off and 0 are no; anything else is the default.
func ParseAnswer(answer string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "t", "true", "on", "1":
		return true
	case "n", "no", "f", "false", "off", "0":
		return false
	default:
		return defaultYes
	}
}

// AssumeYes is a Confirmer that accepts every question and never pauses.
type AssumeYes struct{}

// Confirm implements Confirmer.
func (AssumeYes) Confirm(string, bool) (bool, error) { return true, nil }

// Pause implements Confirmer.
func (AssumeYes) Pause(string) error { return nil }
