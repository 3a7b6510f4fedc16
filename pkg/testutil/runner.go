package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
)

// FakeResponse is what FakeRunner answers for a command line
type FakeResponse struct {
	Output executor.Output
	// ExitCode, when nonzero, turns the call into an ErrCommand failure
	ExitCode int
}

// FakeRunner records every command and answers from a table keyed by
// the rendered command line. Unknown commands succeed with no output.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []executor.Command
	responses map[string]FakeResponse
}

var _ executor.Runner = (*FakeRunner)(nil)

// NewFakeRunner creates an empty fake
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]FakeResponse)}
}

// On sets the response for a command line such as "git init --bare"
func (f *FakeRunner) On(cmdline string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// Fail makes cmdline exit with code
func (f *FakeRunner) Fail(cmdline string, code int) *FakeRunner {
	return f.On(cmdline, FakeResponse{ExitCode: code})
}

// Run implements executor.Runner
func (f *FakeRunner) Run(ctx context.Context, cmd executor.Command) (executor.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	resp, ok := f.responses[cmd.String()]
	f.mu.Unlock()

	if !ok {
		return executor.Output{}, nil
	}
	out := resp.Output
	if resp.ExitCode != 0 {
		out.ExitCode = resp.ExitCode
		return out, errors.Newf(errors.ErrCommand, "%s failed", cmd.Name).
			WithDetail("command", cmd.String()).
			WithDetail("exitCode", resp.ExitCode)
	}
	return out, nil
}

// Calls returns the recorded commands in order
func (f *FakeRunner) Calls() []executor.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.Command(nil), f.calls...)
}

// CommandLines returns the recorded commands rendered as strings
func (f *FakeRunner) CommandLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}
