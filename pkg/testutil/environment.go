package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/paths"
)

// TestEnvironment is a deployment base plus a scratch area for the
// directories a host would normally provide (/etc/systemd/system, ...)
type TestEnvironment struct {
	Root   string
	Layout paths.Layout

	t *testing.T
}

// NewTestEnvironment creates <tmp>/base with an empty repo.git and
// versions directory. Root is the resolved temp dir.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	layout, err := paths.NewLayout(filepath.Join(root, "base"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(layout.RepoDir(), 0755))
	require.NoError(t, os.MkdirAll(layout.VersionsDir(), 0755))

	return &TestEnvironment{Root: root, Layout: layout, t: t}
}

// Dir creates rel under Root and returns its absolute path
func (e *TestEnvironment) Dir(rel string) string {
	e.t.Helper()
	p := filepath.Join(e.Root, rel)
	require.NoError(e.t, os.MkdirAll(p, 0755))
	return p
}

// File writes content at rel under Root, creating parents
func (e *TestEnvironment) File(rel, content string) string {
	e.t.Helper()
	p := filepath.Join(e.Root, rel)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(e.t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// Symlink creates a link at rel under Root pointing at target
func (e *TestEnvironment) Symlink(target, rel string) string {
	e.t.Helper()
	p := filepath.Join(e.Root, rel)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(e.t, os.Symlink(target, p))
	return p
}

// Version creates versions/<commit>/work with the given files
func (e *TestEnvironment) Version(commit string, files map[string]string) string {
	e.t.Helper()
	work := e.Layout.WorkDir(commit)
	require.NoError(e.t, os.MkdirAll(work, 0755))
	for name, content := range files {
		p := filepath.Join(work, name)
		require.NoError(e.t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(e.t, os.WriteFile(p, []byte(content), 0644))
	}
	return work
}
