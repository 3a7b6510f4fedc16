// Package versions materializes commits into per-version directories
// below a deployment base and moves the current pointer between them.
package versions

import (
	"context"
	stderrors "errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
	"github.com/arthur-debert/pushdeploy/pkg/paths"
)

// baseFS is the part of the synthfs OS filesystem used here. Paths are
// relative to the deployment base. The current link is created with
// os.Symlink since synthfs stores absolute targets.
type baseFS interface {
	Stat(name string) (iofs.FileInfo, error)
	MkdirAll(path string, perm iofs.FileMode) error
	Remove(name string) error
	Readlink(name string) (string, error)
}

func openBase(layout paths.Layout) baseFS {
	return filesystem.NewOSFileSystem(layout.Base())
}

// Version is one materialized commit
type Version struct {
	Commit    string    `json:"commit" yaml:"commit"`
	Dir       string    `json:"dir" yaml:"dir"`
	WorkDir   string    `json:"work_dir" yaml:"work_dir"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Current   bool      `json:"current" yaml:"current"`
}

// Checkouter writes the tree of a commit into a directory
type Checkouter interface {
	Checkout(ctx context.Context, repoDir, workDir, commit string) error
}

// Materializer creates version directories and fills them
type Materializer struct {
	checkouter Checkouter
	logger     zerolog.Logger
}

// NewMaterializer creates a materializer using c for checkouts
func NewMaterializer(c Checkouter) *Materializer {
	return &Materializer{
		checkouter: c,
		logger:     logging.GetLogger("versions"),
	}
}

// Materialize creates versions/<commit>/work and checks commit out into
// it. Either directory already existing is an ErrPrecondition error.
// On checkout failure the directories are left in place.
func (m *Materializer) Materialize(ctx context.Context, layout paths.Layout, commit string) (Version, error) {
	if err := paths.ValidateCommit(commit); err != nil {
		return Version{}, err
	}

	fs := openBase(layout)
	commitRel := relPath(layout, layout.CommitDir(commit))
	workRel := relPath(layout, layout.WorkDir(commit))

	for _, p := range []string{commitRel, workRel} {
		exists, err := pathExists(fs, p)
		if err != nil {
			return Version{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", p)
		}
		if exists {
			return Version{}, errors.Newf(errors.ErrPrecondition,
				"%s already exists, commit %s was deployed before", p, commit).
				WithDetail("commit", commit).
				WithDetail("path", p)
		}
	}

	if err := fs.MkdirAll(workRel, 0755); err != nil {
		return Version{}, errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", workRel)
	}
	m.logger.Debug().Str("workDir", layout.WorkDir(commit)).Msg("created version directory")

	v := Version{
		Commit:    commit,
		Dir:       layout.CommitDir(commit),
		WorkDir:   layout.WorkDir(commit),
		CreatedAt: time.Now(),
	}

	if err := m.checkouter.Checkout(ctx, layout.RepoDir(), v.WorkDir, commit); err != nil {
		return v, errors.Wrapf(err, errors.ErrCheckout, "failed to materialize %s", commit).
			WithDetail("commit", commit)
	}

	m.logger.Info().Str("commit", commit).Str("workDir", v.WorkDir).Msg("materialized version")
	return v, nil
}

// SwapCurrent points <base>/current at versions/<commit>, removing the
// previous link first. A current that is not a symlink is refused.
func SwapCurrent(layout paths.Layout, commit string) error {
	if err := paths.ValidateCommit(commit); err != nil {
		return err
	}
	logger := logging.GetLogger("versions")
	fs := openBase(layout)

	previous, isLink, exists, err := readCurrent(fs)
	if err != nil {
		return err
	}
	if exists && !isLink {
		return errors.Newf(errors.ErrPrecondition, "%s exists and is not a symlink", layout.CurrentLink()).
			WithDetail("path", layout.CurrentLink())
	}
	if isLink {
		if err := fs.Remove(paths.CurrentLinkName); err != nil && !isNotExist(err) {
			return errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to remove %s", layout.CurrentLink())
		}
	}

	target := paths.CurrentTarget(commit)
	if err := os.Symlink(target, layout.CurrentLink()); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to link %s to %s", layout.CurrentLink(), target).
			WithDetail("previous", previous)
	}

	logger.Info().
		Str("previous", previous).
		Str("target", target).
		Msg("current version switched")
	return nil
}

// Current returns the commit the current link points at. ok is false
// when there is no current link.
func Current(layout paths.Layout) (commit string, ok bool, err error) {
	fs := openBase(layout)
	target, isLink, exists, err := readCurrent(fs)
	if err != nil || !exists {
		return "", false, err
	}
	if !isLink {
		return "", false, errors.Newf(errors.ErrPrecondition, "%s is not a symlink", layout.CurrentLink())
	}
	return commitFromTarget(layout, target), true, nil
}

// List returns every materialized version, oldest first
func List(layout paths.Layout) ([]Version, error) {
	osfs := afero.NewOsFs()
	entries, err := afero.ReadDir(osfs, layout.VersionsDir())
	if err != nil {
		if isNotExist(err) {
			return []Version{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", layout.VersionsDir())
	}

	current, _, err := Current(layout)
	if err != nil {
		return nil, err
	}

	list := make([]Version, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		list = append(list, Version{
			Commit:    e.Name(),
			Dir:       layout.CommitDir(e.Name()),
			WorkDir:   layout.WorkDir(e.Name()),
			CreatedAt: e.ModTime(),
			Current:   e.Name() == current,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Commit < list[j].Commit
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// readCurrent inspects the current link without following it
func readCurrent(fs baseFS) (target string, isLink, exists bool, err error) {
	target, linkErr := fs.Readlink(paths.CurrentLinkName)
	if linkErr == nil {
		return target, true, true, nil
	}
	exists, err = pathExists(fs, paths.CurrentLinkName)
	if err != nil {
		return "", false, false, errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", paths.CurrentLinkName)
	}
	return "", false, exists, nil
}

// commitFromTarget accepts both relative and absolute targets
func commitFromTarget(layout paths.Layout, target string) string {
	if filepath.IsAbs(target) {
		if rel, err := layout.Rel(target); err == nil {
			target = rel
		}
	}
	if filepath.Dir(target) == paths.VersionsDirName {
		return filepath.Base(target)
	}
	return target
}

func relPath(layout paths.Layout, abs string) string {
	rel, err := layout.Rel(abs)
	if err != nil {
		return abs
	}
	return rel
}

func pathExists(fs baseFS, p string) (bool, error) {
	_, err := fs.Stat(p)
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

func isNotExist(err error) bool {
	return stderrors.Is(err, iofs.ErrNotExist)
}
