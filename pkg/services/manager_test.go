package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
	"github.com/arthur-debert/pushdeploy/pkg/services"
	"github.com/arthur-debert/pushdeploy/pkg/testutil"
)

func TestSystemctl_CommandLines(t *testing.T) {
	ctx := context.Background()
	runner := testutil.NewFakeRunner()
	m := services.NewSystemctl(runner, "", true)

	require.NoError(t, m.Stop(ctx, []string{"a.service", "apache2"}))
	require.NoError(t, m.Reload(ctx))
	require.NoError(t, m.Start(ctx, []string{"a.service", "apache2"}))
	assert.True(t, m.IsActive(ctx, "a.service"))

	assert.Equal(t, []string{
		"sudo systemctl stop --wait a.service apache2",
		"sudo systemctl daemon-reload",
		"sudo systemctl start a.service apache2",
		"sudo systemctl is-active --quiet a.service",
	}, runner.CommandLines())
}

func TestSystemctl_WithoutSudo(t *testing.T) {
	runner := testutil.NewFakeRunner()
	m := services.NewSystemctl(runner, "/bin/systemctl", false)

	require.NoError(t, m.Start(context.Background(), []string{"x.service"}))
	assert.Equal(t, []string{"/bin/systemctl start x.service"}, runner.CommandLines())
}

func TestSystemctl_EmptySetIsNoop(t *testing.T) {
	runner := testutil.NewFakeRunner()
	m := services.NewSystemctl(runner, "", true)

	require.NoError(t, m.Stop(context.Background(), nil))
	require.NoError(t, m.Start(context.Background(), []string{}))
	assert.Empty(t, runner.Calls())
}

func TestSystemctl_Failure(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("sudo systemctl stop --wait a.service", testutil.FakeResponse{
			Output:   executor.Output{Stderr: []byte("Unit a.service not loaded.\n")},
			ExitCode: 5,
		})
	m := services.NewSystemctl(runner, "", true)

	err := m.Stop(context.Background(), []string{"a.service"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrServiceManager))
	assert.True(t, errors.HasErrorCode(err, errors.ErrCommand))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, 5, details["exitCode"])
	assert.Equal(t, "Unit a.service not loaded.", details["stderr"])
}

func TestSystemctl_IsActiveFalseOnFailure(t *testing.T) {
	runner := testutil.NewFakeRunner().Fail("sudo systemctl is-active --quiet gone.service", 3)
	m := services.NewSystemctl(runner, "", true)

	assert.False(t, m.IsActive(context.Background(), "gone.service"))

	filter := services.RunningFilter(context.Background(), m)
	assert.False(t, filter("gone.service"))
	assert.True(t, filter("other.service"))
}
