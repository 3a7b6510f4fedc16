// Package logging configures the process-wide zerolog logger. Console
// output goes to stderr, which git relays to the pushing client when
// running as a hook; everything is also appended to a log file under
// the XDG state directory so hook runs leave a trace on the server.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
)

const (
	appDirName  = "pushdeploy"
	logFileName = "pushdeploy.log"
)

// levels indexed by verbosity; anything above is trace
var levels = []zerolog.Level{zerolog.WarnLevel, zerolog.InfoLevel, zerolog.DebugLevel}

// Level returns the log level of a -v count
func Level(verbosity int) zerolog.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(levels) {
		return zerolog.TraceLevel
	}
	return levels[verbosity]
}

// SetupLogger installs the global logger for a -v count
func SetupLogger(verbosity int) {
	zerolog.SetGlobalLevel(Level(verbosity))

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}

	path := LogFilePath()
	file, fileErr := openLogFile(path)
	var out io.Writer = console
	if fileErr == nil {
		out = zerolog.MultiLevelWriter(console, file)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", path).Msg("log file unavailable, logging to stderr only")
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", path).Msg("logger ready")
}

// GetLogger returns the logger of a component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogFilePath returns the log file location. XDG_STATE_HOME is read at
// call time so a hook environment can redirect it.
func LogFilePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = xdg.StateHome
	}
	if stateHome == "" {
		return logFileName
	}
	return filepath.Join(stateHome, appDirName, logFileName)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrDirCreate, "cannot create log directory")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot open log file")
	}
	return file, nil
}

// LogCommand records an external command about to run
func LogCommand(logger zerolog.Logger, name string, args []string) {
	logger.Debug().Str("command", name).Strs("args", args).Msg("running command")
}

// LogOperationStart records the start of an operation; call the
// returned function when it ends
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("operation started")
	return func() {
		logger.Debug().Str("operation", operation).Dur("duration", time.Since(start)).Msg("operation finished")
	}
}
