// Package lock serializes deployments to one base with an advisory
// flock(2) on <base>/.pushdeploy.lock.
package lock

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// pollInterval is how often Acquire retries while waiting
const pollInterval = 100 * time.Millisecond

// Lock is a held exclusive lock. Release it exactly once.
type Lock struct {
	file   *os.File
	logger zerolog.Logger
}

// Acquire blocks until the lock at path is held or ctx is done
func Acquire(ctx context.Context, path string) (*Lock, error) {
	logger := logging.GetLogger("lock")
	waiting := false
	for {
		l, err := TryAcquire(path)
		if err == nil {
			if waiting {
				logger.Info().Str("path", path).Msg("lock acquired after waiting")
			}
			return l, nil
		}
		if !errors.IsErrorCode(err, errors.ErrAlreadyLocked) {
			return nil, err
		}
		if !waiting {
			logger.Info().Str("path", path).Msg("another deployment is running, waiting")
			waiting = true
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), errors.ErrLock, "gave up waiting for %s", path)
		case <-time.After(pollInterval):
		}
	}
}

// TryAcquire takes the lock without waiting. A lock held elsewhere is
// reported as ErrAlreadyLocked.
func TryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLock, "failed to open lock file %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.Newf(errors.ErrAlreadyLocked, "%s is held by another process", path).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrLock, "failed to lock %s", path)
	}

	l := &Lock{file: f, logger: logging.GetLogger("lock")}
	l.logger.Debug().Str("path", path).Msg("lock acquired")
	return l, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.file.Name()
}

// Release unlocks and closes the lock file. The file itself stays.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	path := l.file.Name()
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return errors.Wrapf(unlockErr, errors.ErrLock, "failed to unlock %s", path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, errors.ErrLock, "failed to close %s", path)
	}
	l.logger.Debug().Str("path", path).Msg("lock released")
	return nil
}
