package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
)

// Layout names, part of the on-disk contract
const (
	RepoDirName     = "repo.git"
	VersionsDirName = "versions"
	WorkDirName     = "work"
	CurrentLinkName = "current"
	LockFileName    = ".pushdeploy.lock"
	HooksDirName    = "hooks"
	PostReceiveHook = "post-receive"
)

// Layout resolves the well-known locations inside one deployment base
type Layout struct {
	base string
}

// NewLayout returns the layout for base, made absolute
func NewLayout(base string) (Layout, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return Layout{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", base)
	}
	return Layout{base: abs}, nil
}

// Base returns the deployment base directory
func (l Layout) Base() string { return l.base }

// RepoDir returns <base>/repo.git
func (l Layout) RepoDir() string { return filepath.Join(l.base, RepoDirName) }

// HookPath returns the post-receive hook of the bare repository
func (l Layout) HookPath() string {
	return filepath.Join(l.RepoDir(), HooksDirName, PostReceiveHook)
}

// VersionsDir returns <base>/versions
func (l Layout) VersionsDir() string { return filepath.Join(l.base, VersionsDirName) }

// CommitDir returns <base>/versions/<commit>
func (l Layout) CommitDir(commit string) string {
	return filepath.Join(l.VersionsDir(), commit)
}

// WorkDir returns <base>/versions/<commit>/work
func (l Layout) WorkDir(commit string) string {
	return filepath.Join(l.CommitDir(commit), WorkDirName)
}

// CurrentLink returns <base>/current
func (l Layout) CurrentLink() string { return filepath.Join(l.base, CurrentLinkName) }

// CurrentTarget is the value stored in the current link for commit.
// It is relative so the base can be moved without breaking the pointer.
func CurrentTarget(commit string) string {
	return filepath.Join(VersionsDirName, commit)
}

// LockFile returns <base>/.pushdeploy.lock
func (l Layout) LockFile() string { return filepath.Join(l.base, LockFileName) }

// Rel returns p relative to the base, using "/" separators
func (l Layout) Rel(p string) (string, error) {
	rel, err := filepath.Rel(l.base, p)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "%s is not below %s", p, l.base)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrInvalidInput, "%s is not below %s", p, l.base)
	}
	return filepath.ToSlash(rel), nil
}

// FindBase walks upward from dir and returns the layout of the nearest
// directory containing repo.git. dir itself is checked first.
func FindBase(dir string) (Layout, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Layout{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", dir)
	}

	for current := abs; ; current = filepath.Dir(current) {
		repo := filepath.Join(current, RepoDirName)
		info, err := os.Stat(repo)
		switch {
		case err == nil && info.IsDir():
			return Layout{base: current}, nil
		case err == nil:
			return Layout{}, errors.Newf(errors.ErrPrecondition, "%s exists but is not a directory", repo).
				WithDetail("path", repo)
		case !os.IsNotExist(err):
			return Layout{}, errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", repo)
		}

		if parent := filepath.Dir(current); parent == current {
			break
		}
	}

	return Layout{}, errors.Newf(errors.ErrBaseNotFound,
		"no %s found in %s or any parent directory", RepoDirName, abs).
		WithDetail("dir", abs)
}

// ValidateCommit rejects commit ids that would escape versions/
func ValidateCommit(commit string) error {
	switch {
	case commit == "":
		return errors.New(errors.ErrInvalidInput, "commit id is empty")
	case commit == "." || commit == "..":
		return errors.Newf(errors.ErrInvalidInput, "invalid commit id %q", commit)
	case strings.ContainsAny(commit, "/\\\x00"):
		return errors.Newf(errors.ErrInvalidInput, "commit id %q must be a single path component", commit)
	case strings.TrimSpace(commit) != commit:
		return errors.Newf(errors.ErrInvalidInput, "commit id %q has surrounding whitespace", commit)
	}
	return nil
}
