package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
)

func TestTryAcquire_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pushdeploy.lock")

	first, err := TryAcquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	// flock locks belong to the open file description, so a second open
	// in the same process conflicts too
	_, err = TryAcquire(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyLocked))

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	second, err := TryAcquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
	assert.FileExists(t, path)
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pushdeploy.lock")
	held, err := TryAcquire(path)
	require.NoError(t, err)

	acquired := make(chan *Lock)
	go func() {
		l, err := Acquire(context.Background(), path)
		if err != nil {
			close(acquired)
			return
		}
		acquired <- l
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while still held")
	case <-time.After(3 * pollInterval):
	}

	require.NoError(t, held.Release())

	select {
	case l, ok := <-acquired:
		require.True(t, ok)
		require.NoError(t, l.Release())
	case <-time.After(5 * time.Second):
		t.Fatal("lock not acquired after release")
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pushdeploy.lock")
	held, err := TryAcquire(path)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*pollInterval)
	defer cancel()

	_, err = Acquire(ctx, path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLock))
}

func TestTryAcquire_MissingDirectory(t *testing.T) {
	_, err := TryAcquire(filepath.Join(t.TempDir(), "missing", "lock"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLock))
}
