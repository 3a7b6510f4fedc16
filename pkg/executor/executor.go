package executor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// waitDelay bounds how long output is drained after a killed process,
// for children that leave grandchildren holding the pipes open
const waitDelay = 2 * time.Second

// Command describes one program invocation
type Command struct {
	Name string
	Args []string
	// Dir is the working directory, empty for the current one
	Dir string
	// Env is appended to the inherited environment
	Env   []string
	Stdin io.Reader
	// Echo, when set, receives stdout and stderr as they are produced
	Echo    io.Writer
	Timeout time.Duration
}

// String renders the command line for logs and messages
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is what a finished command produced
type Output struct {
	Stdout   []byte
	Stderr   []byte
	Combined []byte
	// ExitCode is -1 when the process did not exit normally
	ExitCode int
}

// Runner starts commands
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// OSRunner runs commands as child processes
type OSRunner struct {
	logger zerolog.Logger
}

// NewOSRunner creates a runner backed by os/exec
func NewOSRunner() *OSRunner {
	return &OSRunner{logger: logging.GetLogger("executor")}
}

// Run executes cmd and waits for it. A nonzero exit is reported as an
// ErrCommand error alongside the captured output.
func (r *OSRunner) Run(ctx context.Context, c Command) (Output, error) {
	if c.Name == "" {
		return Output{ExitCode: -1}, errors.New(errors.ErrInvalidInput, "command name is empty")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	logging.LogCommand(r.logger, c.Name, c.Args)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.WaitDelay = waitDelay
	if c.Dir != "" {
		if _, err := os.Stat(c.Dir); err != nil {
			return Output{ExitCode: -1}, errors.Wrapf(err, errors.ErrFileAccess,
				"working directory does not exist: %s", c.Dir)
		}
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	combined := &lockedBuffer{}
	outWriters := []io.Writer{&stdout, combined}
	errWriters := []io.Writer{&stderr, combined}
	if c.Echo != nil {
		echo := &lockedWriter{w: c.Echo}
		outWriters = append(outWriters, echo)
		errWriters = append(errWriters, echo)
	}
	cmd.Stdout = io.MultiWriter(outWriters...)
	cmd.Stderr = io.MultiWriter(errWriters...)

	started := time.Now()
	err := cmd.Run()
	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Combined: combined.Bytes(),
		ExitCode: exitCode(cmd, err),
	}

	if err != nil {
		r.logger.Debug().
			Err(err).
			Str("command", c.String()).
			Int("exitCode", out.ExitCode).
			Str("stderr", stderr.String()).
			Msg("Command failed")

		if ctx.Err() == context.DeadlineExceeded {
			return out, errors.Wrapf(err, errors.ErrCommand, "%s timed out after %s", c.Name, c.Timeout).
				WithDetail("command", c.String())
		}
		return out, errors.Wrapf(err, errors.ErrCommand, "%s failed", c.Name).
			WithDetail("command", c.String()).
			WithDetail("exitCode", out.ExitCode)
	}

	r.logger.Debug().
		Str("command", c.String()).
		Dur("took", time.Since(started)).
		Msg("Command succeeded")
	return out, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// lockedBuffer is written by the stdout and stderr copy goroutines at once
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
