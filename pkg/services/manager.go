package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// Manager controls system services
type Manager interface {
	// Stop returns once every service has stopped
	Stop(ctx context.Context, ids []string) error
	Start(ctx context.Context, ids []string) error
	// Reload makes the manager re-read unit definitions
	Reload(ctx context.Context) error
	IsActive(ctx context.Context, id string) bool
}

// Systemctl is a Manager driving systemd through the systemctl binary
type Systemctl struct {
	runner executor.Runner
	binary string
	sudo   bool
	logger zerolog.Logger
}

var _ Manager = (*Systemctl)(nil)

// NewSystemctl creates a systemd manager. binary defaults to "systemctl".
func NewSystemctl(runner executor.Runner, binary string, sudo bool) *Systemctl {
	if runner == nil {
		runner = executor.NewOSRunner()
	}
	if binary == "" {
		binary = "systemctl"
	}
	return &Systemctl{
		runner: runner,
		binary: binary,
		sudo:   sudo,
		logger: logging.GetLogger("services.systemctl"),
	}
}

// Stop runs "systemctl stop --wait" for ids
func (s *Systemctl) Stop(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.logger.Info().Strs("services", ids).Msg("stopping services")
	return s.run(ctx, append([]string{"stop", "--wait"}, ids...)...)
}

// Start runs "systemctl start" for ids
func (s *Systemctl) Start(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.logger.Info().Strs("services", ids).Msg("starting services")
	return s.run(ctx, append([]string{"start"}, ids...)...)
}

// Reload runs "systemctl daemon-reload"
func (s *Systemctl) Reload(ctx context.Context) error {
	s.logger.Debug().Msg("reloading unit definitions")
	return s.run(ctx, "daemon-reload")
}

// IsActive reports whether "systemctl is-active" succeeds for id
func (s *Systemctl) IsActive(ctx context.Context, id string) bool {
	_, err := s.runner.Run(ctx, s.command("is-active", "--quiet", id))
	return err == nil
}

func (s *Systemctl) run(ctx context.Context, args ...string) error {
	cmd := s.command(args...)
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return errors.Wrapf(err, errors.ErrServiceManager, "%s failed", cmd.String()).
			WithDetail("exitCode", out.ExitCode).
			WithDetail("stderr", strings.TrimSpace(string(out.Stderr)))
	}
	return nil
}

func (s *Systemctl) command(args ...string) executor.Command {
	if s.sudo {
		return executor.Command{Name: "sudo", Args: append([]string{s.binary}, args...)}
	}
	return executor.Command{Name: s.binary, Args: args}
}

// RunningFilter adapts m.IsActive to ResolveOptions.IsRunning
func RunningFilter(ctx context.Context, m Manager) func(string) bool {
	return func(id string) bool {
		return m.IsActive(ctx, id)
	}
}
