// Package hooks prepares a freshly checked-out version before it goes
// live, by running one build or install command inside its work tree.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// NoInitMessage is printed when no command applies to a work tree
const NoInitMessage = "no initialisation performed"

// detector selects Command when Marker exists in the work tree
type detector struct {
	Marker  string
	Command string
}

// detectors are tried in order, the first match wins
var detectors = []detector{
	{Marker: "package.json", Command: "npm install"},
	{Marker: "Makefile", Command: "make install"},
	{Marker: "setup.py", Command: "python setup.py build"},
}

// Result describes what initialization did
type Result struct {
	Command  string        `json:"command,omitempty" yaml:"command,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Skipped  bool          `json:"skipped" yaml:"skipped"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Detect returns the command that would initialize workDir. override
// wins when non-empty.
func Detect(workDir, override string) (string, bool) {
	return detect(afero.NewOsFs(), workDir, override)
}

func detect(fs afero.Fs, workDir, override string) (string, bool) {
	if override != "" {
		return override, true
	}
	for _, d := range detectors {
		if ok, _ := afero.Exists(fs, filepath.Join(workDir, d.Marker)); ok {
			return d.Command, true
		}
	}
	return "", false
}

// Initializer runs the initialization command of a version
type Initializer struct {
	runner  executor.Runner
	fs      afero.Fs
	out     io.Writer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewInitializer creates an initializer that echoes command output to
// out (os.Stderr when nil). A zero timeout means no limit.
func NewInitializer(runner executor.Runner, out io.Writer, timeout time.Duration) *Initializer {
	if runner == nil {
		runner = executor.NewOSRunner()
	}
	if out == nil {
		out = os.Stderr
	}
	return &Initializer{
		runner:  runner,
		fs:      afero.NewOsFs(),
		out:     out,
		timeout: timeout,
		logger:  logging.GetLogger("hooks"),
	}
}

// Run initializes workDir. A command exiting nonzero yields an ErrHook
// error together with a Result carrying the exit code and output.
func (i *Initializer) Run(ctx context.Context, workDir, override string) (Result, error) {
	command, ok := detect(i.fs, workDir, override)
	if !ok {
		i.logger.Warn().Str("workDir", workDir).Msg(NoInitMessage)
		fmt.Fprintln(i.out, NoInitMessage)
		return Result{Skipped: true}, nil
	}

	fmt.Fprintf(i.out, "%s$ %s\n", workDir, command)
	i.logger.Info().Str("workDir", workDir).Str("command", command).Msg("initializing version")

	started := time.Now()
	out, err := i.runner.Run(ctx, executor.Command{
		Name:    "sh",
		Args:    []string{"-c", command},
		Dir:     workDir,
		Echo:    i.out,
		Timeout: i.timeout,
	})
	result := Result{
		Command:  command,
		ExitCode: out.ExitCode,
		Output:   string(out.Combined),
		Duration: time.Since(started),
	}
	if err != nil {
		return result, errors.Wrapf(err, errors.ErrHook, "initialization command %q failed", command).
			WithDetail("command", command).
			WithDetail("exitCode", out.ExitCode)
	}

	i.logger.Info().
		Str("command", command).
		Dur("took", result.Duration).
		Msg("initialization finished")
	return result, nil
}
