package command

import (
	"context"
	"fmt"
	"sync"
)

// Call is one invocation seen by a Recorder.
type Call struct {
	Name string
	Args []string
}

// Line renders the call as a command line.
func (c Call) Line() string {
	return Render(c.Name, c.Args...)
}

// Response is the canned result of a command line.
type Response struct {
	Output string
	Err    error
}

// Recorder is a Runner that records calls and replays canned responses,
// keyed by the rendered command line. Unknown command lines succeed with
// empty output unless Strict is set.
type Recorder struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []Call

	Strict bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{responses: make(map[string]Response)}
}

// On registers the response for a command line.
func (r *Recorder) On(line string, output string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = Response{Output: output, Err: err}
	return r
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.calls = append(r.calls, call)

	resp, ok := r.responses[call.Line()]
	if !ok && r.Strict {
		return "", fmt.Errorf("unexpected command: %s", call.Line())
	}
	return resp.Output, resp.Err
}

// Calls returns the recorded invocations in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded invocations as command lines.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Reset forgets recorded calls but keeps responses.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
