// Package deploy runs a complete deployment of one commit: check it out
// into a fresh version directory, initialize it, stop the services that
// depend on the base, switch the current pointer and start them again.
package deploy

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/pushdeploy/pkg/config"
	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/history"
	"github.com/arthur-debert/pushdeploy/pkg/hooks"
	"github.com/arthur-debert/pushdeploy/pkg/lock"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
	"github.com/arthur-debert/pushdeploy/pkg/paths"
	"github.com/arthur-debert/pushdeploy/pkg/services"
	"github.com/arthur-debert/pushdeploy/pkg/versions"
)

// Step names, in pipeline order
const (
	StepDiscover    = "discover"
	StepMaterialize = "materialize"
	StepInitialize  = "initialize"
	StepResolve     = "resolve"
	StepStop        = "stop"
	StepSwap        = "swap"
	StepReload      = "reload"
	StepStart       = "start"
)

// Materializer creates and fills a version directory
type Materializer interface {
	Materialize(ctx context.Context, layout paths.Layout, commit string) (versions.Version, error)
}

// Initializer prepares a work tree
type Initializer interface {
	Run(ctx context.Context, workDir, override string) (hooks.Result, error)
}

// Resolver finds the services depending on a base
type Resolver interface {
	AffectedServices(base, commit string, opts services.ResolveOptions) ([]string, error)
}

// RecorderOpener returns the history recorder of a base. Recorders that
// implement io.Closer are closed when the deployment ends.
type RecorderOpener func(layout paths.Layout) (history.Recorder, error)

// Request asks for commit to be deployed to the base containing Dir
type Request struct {
	Dir    string
	Commit string
	Ref    string
}

// Result describes a deployment, complete or not
type Result struct {
	Base      string           `json:"base" yaml:"base"`
	Commit    string           `json:"commit" yaml:"commit"`
	Version   versions.Version `json:"version" yaml:"version"`
	Init      hooks.Result     `json:"init" yaml:"init"`
	Services  []string         `json:"services" yaml:"services"`
	Steps     []string         `json:"steps" yaml:"steps"`
	HistoryID string           `json:"history_id,omitempty" yaml:"history_id,omitempty"`
}

// Deployer runs the deployment pipeline
type Deployer struct {
	cfg          *config.Config
	materializer Materializer
	initializer  Initializer
	resolver     Resolver
	manager      services.Manager
	openRecorder RecorderOpener
	out          io.Writer
	logger       zerolog.Logger
}

// Options wires a Deployer. Config, Materializer, Initializer, Resolver
// and Manager are required.
type Options struct {
	Config       *config.Config
	Materializer Materializer
	Initializer  Initializer
	Resolver     Resolver
	Manager      services.Manager
	// OpenRecorder defaults to the SQLite store when history is enabled
	OpenRecorder RecorderOpener
	// Out receives one progress line per step, nil for none
	Out io.Writer
}

// New creates a Deployer
func New(opts Options) (*Deployer, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New(errors.ErrInvalidInput, "deployer needs a configuration")
	case opts.Materializer == nil, opts.Initializer == nil, opts.Resolver == nil, opts.Manager == nil:
		return nil, errors.New(errors.ErrInvalidInput, "deployer is missing a collaborator")
	}

	d := &Deployer{
		cfg:          opts.Config,
		materializer: opts.Materializer,
		initializer:  opts.Initializer,
		resolver:     opts.Resolver,
		manager:      opts.Manager,
		openRecorder: opts.OpenRecorder,
		out:          opts.Out,
		logger:       logging.GetLogger("deploy"),
	}
	if d.openRecorder == nil {
		d.openRecorder = DefaultRecorder(opts.Config)
	}
	if d.out == nil {
		d.out = io.Discard
	}
	return d, nil
}

// DefaultRecorder opens <base>/<history.database> when history is
// enabled, and records nothing otherwise
func DefaultRecorder(cfg *config.Config) RecorderOpener {
	return func(layout paths.Layout) (history.Recorder, error) {
		if !cfg.History.Enabled {
			return history.Nop{}, nil
		}
		return history.Open(cfg.HistoryPath(layout.Base()))
	}
}

// run is the state threaded through the steps
type run struct {
	layout   paths.Layout
	req      Request
	result   *Result
	recorder history.Recorder
	record   *history.Record
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
	// skip reports the step has nothing to do
	skip func(r *run) bool
}

func (d *Deployer) steps() []step {
	noServices := func(r *run) bool { return len(r.result.Services) == 0 }
	return []step{
		{name: StepMaterialize, fn: d.materialize},
		{name: StepInitialize, fn: d.initialize},
		{name: StepResolve, fn: d.resolve},
		{name: StepStop, fn: d.stop, skip: noServices},
		{name: StepSwap, fn: d.swap},
		{name: StepReload, fn: d.reload},
		{name: StepStart, fn: d.start, skip: noServices},
	}
}

// Deploy deploys req.Commit. Steps run in order and the first failure
// ends the run without undoing earlier steps; the returned Result then
// holds what was completed.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Commit: req.Commit, Services: []string{}, Steps: []string{}}
	defer logging.LogOperationStart(d.logger, "deploy "+req.Commit)()

	if err := paths.ValidateCommit(req.Commit); err != nil {
		return result, err
	}

	layout, err := paths.FindBase(req.Dir)
	if err != nil {
		return result, stepError(StepDiscover, err)
	}
	result.Base = layout.Base()

	held, err := lock.Acquire(ctx, layout.LockFile())
	if err != nil {
		return result, stepError(StepDiscover, err)
	}
	d.logger.Debug().Str("lock", held.Path()).Msg("deployment lock held")
	defer func() {
		if err := held.Release(); err != nil {
			d.logger.Warn().Err(err).Msg("failed to release deployment lock")
		}
	}()

	r := &run{layout: layout, req: req, result: result}
	r.recorder, r.record = d.beginHistory(ctx, layout, req)
	if closer, ok := r.recorder.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	if r.record != nil {
		result.HistoryID = r.record.ID
	}
	result.Steps = append(result.Steps, StepDiscover)

	if err := ctx.Err(); err != nil {
		err = stepError(StepDiscover, errors.Wrap(err, errors.ErrInternal, "deployment cancelled"))
		d.finishHistory(ctx, r, err)
		return result, err
	}

	for _, s := range d.steps() {
		if s.skip != nil && s.skip(r) {
			d.logger.Debug().Str("step", s.name).Msg("nothing to do")
			continue
		}
		fmt.Fprintf(d.out, "pushdeploy: %s\n", s.name)
		d.logger.Info().Str("step", s.name).Str("commit", req.Commit).Msg("running step")

		if err := s.fn(ctx, r); err != nil {
			err = stepError(s.name, err)
			d.logger.Error().Err(err).Str("step", s.name).Msg("deployment failed")
			d.finishHistory(ctx, r, err)
			return result, err
		}
		result.Steps = append(result.Steps, s.name)
	}

	d.finishHistory(ctx, r, nil)
	d.logger.Info().
		Str("commit", req.Commit).
		Strs("services", result.Services).
		Msg("deployment complete")
	return result, nil
}

func (d *Deployer) materialize(ctx context.Context, r *run) error {
	v, err := d.materializer.Materialize(ctx, r.layout, r.req.Commit)
	r.result.Version = v
	return err
}

func (d *Deployer) initialize(ctx context.Context, r *run) error {
	res, err := d.initializer.Run(ctx, r.result.Version.WorkDir, d.cfg.Init.Command)
	r.result.Init = res
	return err
}

func (d *Deployer) resolve(ctx context.Context, r *run) error {
	opts := ResolveOptions(d.cfg, services.RunningFilter(ctx, d.manager))
	ids, err := d.resolver.AffectedServices(r.layout.Base(), r.req.Commit, opts)
	if err != nil {
		return err
	}
	r.result.Services = ids
	return nil
}

// ResolveOptions builds the resolver input described by cfg. A nil
// isRunning keeps stopped services.
func ResolveOptions(cfg *config.Config, isRunning func(string) bool) services.ResolveOptions {
	opts := services.ResolveOptions{
		UnitDirs:  cfg.Services.SystemdDirs,
		IsRunning: isRunning,
	}
	if cfg.Services.WebServerService != "" && len(cfg.Services.WebServerDirs) > 0 {
		opts.WebServers = []services.WebServer{{
			Service: cfg.Services.WebServerService,
			Dirs:    cfg.Services.WebServerDirs,
		}}
	}
	return opts
}

func (d *Deployer) stop(ctx context.Context, r *run) error {
	return d.manager.Stop(ctx, r.result.Services)
}

func (d *Deployer) swap(_ context.Context, r *run) error {
	return versions.SwapCurrent(r.layout, r.req.Commit)
}

func (d *Deployer) reload(ctx context.Context, _ *run) error {
	return d.manager.Reload(ctx)
}

func (d *Deployer) start(ctx context.Context, r *run) error {
	return d.manager.Start(ctx, r.result.Services)
}

// beginHistory never fails a deployment; a broken history store is
// logged and replaced by Nop
func (d *Deployer) beginHistory(ctx context.Context, layout paths.Layout, req Request) (history.Recorder, *history.Record) {
	recorder, err := d.openRecorder(layout)
	if err != nil {
		d.logger.Warn().Err(err).Msg("deployment history unavailable")
		recorder = history.Nop{}
	}
	rec, err := recorder.Begin(ctx, req.Commit, req.Ref)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to record deployment start")
		if closer, ok := recorder.(io.Closer); ok {
			_ = closer.Close()
		}
		recorder = history.Nop{}
		rec, _ = recorder.Begin(ctx, req.Commit, req.Ref)
	}
	return recorder, rec
}

func (d *Deployer) finishHistory(ctx context.Context, r *run, deployErr error) {
	if err := r.recorder.Finish(context.WithoutCancel(ctx), r.record, r.result.Services, deployErr); err != nil {
		d.logger.Warn().Err(err).Msg("failed to record deployment outcome")
	}
}

func stepError(name string, err error) error {
	return errors.Wrapf(err, errors.GetErrorCode(err), "%s step failed", name).
		WithDetail("step", name)
}

// StepOf returns the step a Deploy error came from
func StepOf(err error) string {
	if step, ok := errors.GetErrorDetails(err)["step"].(string); ok {
		return step
	}
	return ""
}
