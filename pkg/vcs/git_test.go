package vcs_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/testutil"
	"github.com/arthur-debert/pushdeploy/pkg/vcs"
)

func TestGit_CheckoutCommandLine(t *testing.T) {
	runner := testutil.NewFakeRunner()
	g := vcs.NewGit(runner, "")

	require.NoError(t, g.Checkout(context.Background(), "/srv/app/repo.git", "/srv/app/versions/abc/work", "abc"))
	assert.Equal(t, []string{
		"git --git-dir /srv/app/repo.git --work-tree /srv/app/versions/abc/work checkout -f abc",
	}, runner.CommandLines())
}

func TestGit_CheckoutFailure(t *testing.T) {
	runner := testutil.NewFakeRunner().
		Fail("git --git-dir /r --work-tree /w checkout -f nope", 128)
	g := vcs.NewGit(runner, "")

	err := g.Checkout(context.Background(), "/r", "/w", "nope")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCheckout))
	assert.Equal(t, "nope", errors.GetErrorDetails(err)["commit"])
}

func TestGit_InitBareCommandLine(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := afero.NewMemMapFs()
	g := vcs.NewGit(runner, "/usr/bin/git").WithFs(fs)

	require.NoError(t, g.InitBare(context.Background(), "/srv/app/repo.git"))
	assert.Equal(t, []string{"/usr/bin/git --git-dir=/srv/app/repo.git init --bare --shared=group"}, runner.CommandLines())

	exists, err := afero.DirExists(fs, "/srv/app/repo.git")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGit_InstallHook(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := vcs.NewGit(testutil.NewFakeRunner(), "").WithFs(fs)
	hook := "/srv/app/repo.git/hooks/post-receive"

	require.NoError(t, afero.WriteFile(fs, hook, []byte("old"), 0644))
	require.NoError(t, g.InstallHook(hook, "pushdeploy post-receive-hook"))

	content, err := afero.ReadFile(fs, hook)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nexec pushdeploy post-receive-hook\n", string(content))

	info, err := fs.Stat(hook)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

// TestGit_RealRepository drives the real git binary end to end
func TestGit_RealRepository(t *testing.T) {
	gitBin, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not installed")
	}

	ctx := context.Background()
	root := t.TempDir()
	bare := filepath.Join(root, "repo.git")
	g := vcs.NewGit(nil, gitBin)
	require.NoError(t, g.InitBare(ctx, bare))

	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app.txt"), []byte("v1\n"), 0644))
	gitIn := func(args ...string) string {
		t.Helper()
		full := append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)
		cmd := exec.Command(gitBin, full...)
		cmd.Dir = src
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return string(out)
	}
	gitIn("init", "-q")
	gitIn("add", "app.txt")
	gitIn("commit", "-q", "-m", "first")
	gitIn("push", "-q", bare, "HEAD:refs/heads/master")

	commit, err := g.ResolveCommit(ctx, bare, "master")
	require.NoError(t, err)
	assert.Len(t, commit, 40)

	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(work, 0755))
	require.NoError(t, g.Checkout(ctx, bare, work, commit))

	content, err := os.ReadFile(filepath.Join(work, "app.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(content))

	_, err = g.ResolveCommit(ctx, bare, "does-not-exist")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}
