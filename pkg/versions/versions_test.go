package versions_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/paths"
	"github.com/arthur-debert/pushdeploy/pkg/testutil"
	"github.com/arthur-debert/pushdeploy/pkg/versions"
)

func TestMaterialize(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	ctx := context.Background()
	checkouter := &testutil.MockCheckouter{}
	checkouter.On("Checkout", ctx, env.Layout.RepoDir(), env.Layout.WorkDir("abc"), "abc").
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(filepath.Join(args.String(2), "app.txt"), []byte("v1"), 0644))
		}).
		Return(nil)

	v, err := versions.NewMaterializer(checkouter).Materialize(ctx, env.Layout, "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", v.Commit)
	assert.Equal(t, env.Layout.CommitDir("abc"), v.Dir)
	assert.Equal(t, env.Layout.WorkDir("abc"), v.WorkDir)
	assert.FileExists(t, filepath.Join(v.WorkDir, "app.txt"))
	checkouter.AssertExpectations(t)
}

func TestMaterialize_CreatesVersionsDir(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	require.NoError(t, os.Remove(env.Layout.VersionsDir()))
	checkouter := &testutil.MockCheckouter{}
	checkouter.On("Checkout", mock.Anything, mock.Anything, mock.Anything, "abc").Return(nil)

	_, err := versions.NewMaterializer(checkouter).Materialize(context.Background(), env.Layout, "abc")
	require.NoError(t, err)
	assert.DirExists(t, env.Layout.WorkDir("abc"))
}

func TestMaterialize_SameCommitTwice(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	checkouter := &testutil.MockCheckouter{}
	checkouter.On("Checkout", mock.Anything, mock.Anything, mock.Anything, "abc").Return(nil).Once()
	m := versions.NewMaterializer(checkouter)

	_, err := m.Materialize(context.Background(), env.Layout, "abc")
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), env.Layout, "abc")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPrecondition))
	checkouter.AssertNumberOfCalls(t, "Checkout", 1)
}

func TestMaterialize_PartialDirectoryIsConflict(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	require.NoError(t, os.MkdirAll(env.Layout.CommitDir("abc"), 0755))
	checkouter := &testutil.MockCheckouter{}

	_, err := versions.NewMaterializer(checkouter).Materialize(context.Background(), env.Layout, "abc")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPrecondition))
	checkouter.AssertNotCalled(t, "Checkout")
}

func TestMaterialize_InvalidCommit(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	_, err := versions.NewMaterializer(&testutil.MockCheckouter{}).
		Materialize(context.Background(), env.Layout, "../escape")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestMaterialize_CheckoutFailureLeavesDirectories(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	checkouter := &testutil.MockCheckouter{}
	checkouter.On("Checkout", mock.Anything, mock.Anything, mock.Anything, "bad").
		Return(errors.New(errors.ErrCommand, "git failed"))

	v, err := versions.NewMaterializer(checkouter).Materialize(context.Background(), env.Layout, "bad")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCheckout))
	assert.Equal(t, "bad", v.Commit)
	assert.DirExists(t, env.Layout.WorkDir("bad"))
}

func TestSwapCurrent(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Version("one", nil)
	env.Version("two", nil)

	_, ok, err := versions.Current(env.Layout)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, versions.SwapCurrent(env.Layout, "one"))
	target, err := os.Readlink(env.Layout.CurrentLink())
	require.NoError(t, err)
	assert.Equal(t, "versions/one", target)

	require.NoError(t, versions.SwapCurrent(env.Layout, "two"))
	target, err = os.Readlink(env.Layout.CurrentLink())
	require.NoError(t, err)
	assert.Equal(t, "versions/two", target)

	commit, ok, err := versions.Current(env.Layout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", commit)

	// the link resolves from the base
	assert.DirExists(t, filepath.Join(env.Layout.CurrentLink(), "work"))
}

func TestSwapCurrent_SurvivesMovingTheBase(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Version("one", nil)
	require.NoError(t, versions.SwapCurrent(env.Layout, "one"))

	moved := env.Layout.Base() + "-moved"
	require.NoError(t, os.Rename(env.Layout.Base(), moved))

	layout, err := paths.NewLayout(moved)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(layout.CurrentLink(), "work"))

	commit, ok, err := versions.Current(layout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", commit)
}

func TestSwapCurrent_ReplacesDanglingLink(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Version("new", nil)
	require.NoError(t, os.Symlink("versions/removed", env.Layout.CurrentLink()))

	require.NoError(t, versions.SwapCurrent(env.Layout, "new"))
	commit, ok, err := versions.Current(env.Layout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", commit)
}

func TestSwapCurrent_RefusesNonSymlink(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	require.NoError(t, os.Mkdir(env.Layout.CurrentLink(), 0755))

	err := versions.SwapCurrent(env.Layout, "abc")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPrecondition))
	assert.DirExists(t, env.Layout.CurrentLink())
}

func TestCurrent_AbsoluteTarget(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Version("abs", nil)
	require.NoError(t, os.Symlink(env.Layout.CommitDir("abs"), env.Layout.CurrentLink()))

	commit, ok, err := versions.Current(env.Layout)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abs", commit)
}

func TestList(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Version("b", nil)
	env.Version("a", nil)
	env.File("base/versions/stray-file", "")
	require.NoError(t, versions.SwapCurrent(env.Layout, "a"))

	list, err := versions.List(env.Layout)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byCommit := map[string]versions.Version{}
	for _, v := range list {
		byCommit[v.Commit] = v
	}
	assert.True(t, byCommit["a"].Current)
	assert.False(t, byCommit["b"].Current)
	assert.Equal(t, env.Layout.WorkDir("b"), byCommit["b"].WorkDir)
}

func TestList_NoVersionsDir(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	require.NoError(t, os.Remove(env.Layout.VersionsDir()))

	list, err := versions.List(env.Layout)
	require.NoError(t, err)
	assert.Empty(t, list)
}
