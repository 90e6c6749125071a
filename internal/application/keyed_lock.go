package application

import (
	"context"
	"sync"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// keyedLock hands out one exclusive lock per session key. Entries live
// only while someone holds or waits for them.
type keyedLock struct {
	mu      sync.Mutex
	entries map[domain.ThreadKey]*lockEntry
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[domain.ThreadKey]*lockEntry)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the lock and is safe to call more than once.
func (l *keyedLock) Lock(ctx context.Context, key domain.ThreadKey) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			l.release(key, entry)
		})
	}, nil
}

func (l *keyedLock) release(key domain.ThreadKey, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
