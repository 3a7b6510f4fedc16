// Package vcs talks to the bare repository that receives pushes.
package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// Git runs the git binary against a bare repository
type Git struct {
	runner executor.Runner
	binary string
	fs     afero.Fs
	logger zerolog.Logger
}

// NewGit creates a Git. binary defaults to "git".
func NewGit(runner executor.Runner, binary string) *Git {
	if runner == nil {
		runner = executor.NewOSRunner()
	}
	if binary == "" {
		binary = "git"
	}
	return &Git{
		runner: runner,
		binary: binary,
		fs:     afero.NewOsFs(),
		logger: logging.GetLogger("vcs"),
	}
}

// WithFs replaces the filesystem used for hook installation
func (g *Git) WithFs(fs afero.Fs) *Git {
	g.fs = fs
	return g
}

// runGit executes git and returns trimmed combined output
func (g *Git) runGit(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, executor.Command{Name: g.binary, Args: args})
	return strings.TrimSpace(string(out.Combined)), err
}

// Checkout writes the tree of commit from repoDir into workDir
func (g *Git) Checkout(ctx context.Context, repoDir, workDir, commit string) error {
	g.logger.Info().Str("commit", commit).Str("workDir", workDir).Msg("checking out")
	out, err := g.runGit(ctx, "--git-dir", repoDir, "--work-tree", workDir, "checkout", "-f", commit)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCheckout, "failed to check out %s", commit).
			WithDetail("commit", commit).
			WithDetail("output", out)
	}
	return nil
}

// ResolveCommit turns a revision (branch, tag, abbreviated id) into a
// full commit id
func (g *Git) ResolveCommit(ctx context.Context, repoDir, rev string) (string, error) {
	out, err := g.runGit(ctx, "--git-dir", repoDir, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrNotFound, "unknown revision %s", rev).
			WithDetail("revision", rev)
	}
	return out, nil
}

// InitBare creates a group-shared bare repository at repoDir
func (g *Git) InitBare(ctx context.Context, repoDir string) error {
	if err := g.fs.MkdirAll(repoDir, 0775); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", repoDir)
	}
	out, err := g.runGit(ctx, "--git-dir="+repoDir, "init", "--bare", "--shared=group")
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "git init failed in %s", repoDir).
			WithDetail("output", out)
	}
	g.logger.Info().Str("repo", repoDir).Msg("initialized bare repository")
	return nil
}

// HookScript is the post-receive hook body that runs command
func HookScript(command string) string {
	return fmt.Sprintf("#!/bin/sh\nexec %s\n", command)
}

// InstallHook writes an executable post-receive hook at hookPath,
// replacing any existing one
func (g *Git) InstallHook(hookPath, command string) error {
	if err := g.fs.MkdirAll(filepath.Dir(hookPath), 0775); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Dir(hookPath))
	}
	if err := afero.WriteFile(g.fs, hookPath, []byte(HookScript(command)), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to write hook %s", hookPath)
	}
	// WriteFile does not change the mode of an existing file
	if err := g.fs.Chmod(hookPath, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to make %s executable", hookPath)
	}
	g.logger.Info().Str("hook", hookPath).Str("command", command).Msg("installed post-receive hook")
	return nil
}
