// Package symlinks finds symbolic links that point into a directory tree.
//
// It answers the question "which links under /etc/systemd/system refer to
// files of this deployment base", without ever following a link while
// walking.
package symlinks

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// maxRootHops bounds resolution of a symlinked scan root
const maxRootHops = 40

// Link is a symlink found during a scan
type Link struct {
	// Path is relative to the scan root, "/"-separated
	Path string `json:"path" yaml:"path"`
	// Target is the value stored in the link, unmodified
	Target string `json:"target" yaml:"target"`
	// Resolved is Target made absolute against the link's directory
	Resolved string `json:"resolved" yaml:"resolved"`
}

// Scanner walks a filesystem looking for symlinks
type Scanner struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewScanner returns a scanner over fs. A nil fs scans the OS filesystem.
func NewScanner(fs afero.Fs) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Scanner{
		fs:     fs,
		logger: logging.GetLogger("symlinks"),
	}
}

// FindLinksTo returns the paths, relative to scanRoot, of every symlink
// under scanRoot whose target is target or lies inside it.
func (s *Scanner) FindLinksTo(scanRoot, target string) ([]string, error) {
	links, err := s.FindLinks(scanRoot, target)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Path)
	}
	return out, nil
}

// FindLinks is FindLinksTo returning the stored target of each link too.
// An empty target matches every link.
func (s *Scanner) FindLinks(scanRoot, target string) ([]Link, error) {
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return nil, errors.Newf(errors.ErrInternal, "filesystem %s cannot read symlinks", s.fs.Name())
	}

	root, err := filepath.Abs(scanRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid scan root %s", scanRoot)
	}
	if target != "" {
		if target, err = filepath.Abs(target); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid target %s", target)
		}
	}

	root, err = s.resolveRoot(reader, root)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			s.logger.Debug().Str("root", scanRoot).Msg("scan root does not exist")
			return []Link{}, nil
		}
		return nil, err
	}

	found := make(map[string]Link)
	walkErr := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return nil
		}

		stored, err := reader.ReadlinkIfPossible(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to read symlink")
			return nil
		}
		resolved := resolveTarget(path, stored)
		if target != "" && !within(target, resolved) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		found[rel] = Link{Path: rel, Target: stored, Resolved: resolved}
		s.logger.Trace().Str("link", rel).Str("target", stored).Msg("matched symlink")
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrapf(walkErr, errors.ErrFileAccess, "failed to scan %s", scanRoot)
	}

	links := make([]Link, 0, len(found))
	for _, l := range found {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Path < links[j].Path })
	return links, nil
}

// resolveRoot follows root while it is itself a symlink
func (s *Scanner) resolveRoot(reader afero.LinkReader, root string) (string, error) {
	for hop := 0; hop < maxRootHops; hop++ {
		info, err := lstat(s.fs, root)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", root)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return root, nil
		}
		stored, err := reader.ReadlinkIfPossible(root)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to read symlink %s", root)
		}
		root = resolveTarget(root, stored)
	}
	return "", errors.Newf(errors.ErrFileAccess, "too many levels of symbolic links at %s", root)
}

func lstat(fs afero.Fs, name string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)
		return info, err
	}
	return fs.Stat(name)
}

func resolveTarget(linkPath, stored string) string {
	if filepath.IsAbs(stored) {
		return filepath.Clean(stored)
	}
	return filepath.Join(filepath.Dir(linkPath), stored)
}

// within reports whether p is dir or below it, by path components
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
