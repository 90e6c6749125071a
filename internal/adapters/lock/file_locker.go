// Package lock serializes session updates across lses processes with
// advisory file locks.
package lock

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/ports"
)

const (
	lockDirMode       = 0o700
	defaultRetryDelay = 10 * time.Millisecond
)

// FileLocker holds one lock file per session key under dir.
type FileLocker struct {
	dir        string
	retryDelay time.Duration
}

var _ ports.SessionLocker = (*FileLocker)(nil)

func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir, retryDelay: defaultRetryDelay}
}

func (l *FileLocker) Dir() string {
	return l.dir
}

func (l *FileLocker) Lock(ctx context.Context, key domain.ThreadKey) (func() error, error) {
	return l.LockPath(ctx, l.pathForKey(key))
}

// LockPath takes an exclusive lock on an arbitrary file, creating it and
// its directory when missing.
func (l *FileLocker) LockPath(ctx context.Context, path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), lockDirMode); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, l.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("lock %s: not acquired", path)
	}

	return fl.Unlock, nil
}

func (l *FileLocker) pathForKey(key domain.ThreadKey) string {
	return filepath.Join(l.dir, "session-"+url.PathEscape(string(key))+".lock")
}
