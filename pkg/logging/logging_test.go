package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, Level(-1))
	assert.Equal(t, zerolog.WarnLevel, Level(0))
	assert.Equal(t, zerolog.InfoLevel, Level(1))
	assert.Equal(t, zerolog.DebugLevel, Level(2))
	assert.Equal(t, zerolog.TraceLevel, Level(3))
	assert.Equal(t, zerolog.TraceLevel, Level(7))
}

func TestSetupLoggerWritesLogFile(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	SetupLogger(1)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	logger := GetLogger("deploy")
	logger.Info().Msg("swapped current")
	assert.FileExists(t, filepath.Join(stateHome, "pushdeploy", "pushdeploy.log"))
}

func TestSetupLoggerWithoutLogFile(t *testing.T) {
	// a regular file where the state directory should be
	stateHome := filepath.Join(t.TempDir(), "state")
	require.NoError(t, writeFile(stateHome))
	t.Setenv("XDG_STATE_HOME", stateHome)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	assert.NotPanics(t, func() { SetupLogger(0) })
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/lib/deploy/state")
	assert.Equal(t, "/var/lib/deploy/state/pushdeploy/pushdeploy.log", filepath.ToSlash(LogFilePath()))
}

func TestGetLogger(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logger := GetLogger("services")
	logger.Info().Msg("stopping")
	assert.Contains(t, buf.String(), `"component":"services"`)
}

func TestLogCommand(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	LogCommand(zerolog.New(&buf), "systemctl", []string{"stop", "--wait", "app.service"})

	out := buf.String()
	assert.Contains(t, out, `"command":"systemctl"`)
	assert.Contains(t, out, `"args":["stop","--wait","app.service"]`)
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	done := LogOperationStart(zerolog.New(&buf), "materialize")
	done()

	out := buf.String()
	assert.Contains(t, out, "operation started")
	assert.Contains(t, out, "operation finished")
	assert.Contains(t, out, `"duration"`)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory"), 0644)
}
