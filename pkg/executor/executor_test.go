package executor_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
)

func TestOSRunner_CapturesOutput(t *testing.T) {
	var echo bytes.Buffer
	out, err := executor.NewOSRunner().Run(context.Background(), executor.Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
		Echo: &echo,
	})
	require.NoError(t, err)

	assert.Equal(t, "out\n", string(out.Stdout))
	assert.Equal(t, "err\n", string(out.Stderr))
	assert.Contains(t, string(out.Combined), "out\n")
	assert.Contains(t, string(out.Combined), "err\n")
	assert.Equal(t, len(out.Combined), echo.Len())
	assert.Equal(t, 0, out.ExitCode)
}

func TestOSRunner_NonzeroExit(t *testing.T) {
	out, err := executor.NewOSRunner().Run(context.Background(), executor.Command{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 3"},
	})
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrCommand))
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "broken\n", string(out.Stderr))
	assert.Equal(t, 3, errors.GetErrorDetails(err)["exitCode"])
}

func TestOSRunner_DirEnvAndStdin(t *testing.T) {
	dir := t.TempDir()
	out, err := executor.NewOSRunner().Run(context.Background(), executor.Command{
		Name:  "sh",
		Args:  []string{"-c", "pwd; echo $PUSHDEPLOY_TEST_VALUE; cat"},
		Dir:   dir,
		Env:   []string{"PUSHDEPLOY_TEST_VALUE=hello"},
		Stdin: strings.NewReader("from stdin"),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out.Stdout)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "/"+lastElem(dir)))
	assert.Equal(t, "hello", lines[1])
	assert.Equal(t, "from stdin", lines[2])
}

func TestOSRunner_Timeout(t *testing.T) {
	start := time.Now()
	out, err := executor.NewOSRunner().Run(context.Background(), executor.Command{
		Name:    "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)

	assert.True(t, errors.IsErrorCode(err, errors.ErrCommand))
	assert.Contains(t, err.Error(), "timed out")
	assert.NotEqual(t, 0, out.ExitCode)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestOSRunner_MissingDir(t *testing.T) {
	_, err := executor.NewOSRunner().Run(context.Background(), executor.Command{
		Name: "true",
		Dir:  "/nonexistent/pushdeploy/dir",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}

func TestOSRunner_EmptyName(t *testing.T) {
	_, err := executor.NewOSRunner().Run(context.Background(), executor.Command{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "sudo systemctl stop --wait a.service",
		executor.Command{Name: "sudo", Args: []string{"systemctl", "stop", "--wait", "a.service"}}.String())
	assert.Equal(t, "true", executor.Command{Name: "true"}.String())
}

func lastElem(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}
