package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockerExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first := NewFileLocker(dir)
	second := NewFileLocker(dir)

	release, err := first.Lock(context.Background(), "demo")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx, "demo")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, release())

	release, err = second.Lock(context.Background(), "demo")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestFileLockerKeysDoNotShareLocks(t *testing.T) {
	locker := NewFileLocker(t.TempDir())

	releaseA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer func() { _ = releaseA() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, releaseB())
}

func TestFileLockerEscapesKeysAndCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	locker := NewFileLocker(dir)

	release, err := locker.Lock(context.Background(), "team/../x")
	require.NoError(t, err)
	require.NoError(t, release())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session-team%2F..%2Fx.lock", entries[0].Name())
}

func TestFileLockerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLocker(t.TempDir()).Lock(ctx, "demo")
	require.ErrorIs(t, err, context.Canceled)
}
