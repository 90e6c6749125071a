package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepository(t *testing.T, path string) *Repository {
	t.Helper()

	repo, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleSession(key domain.ThreadKey) domain.Session {
	now := time.Date(2026, 10, 19, 7, 0, 0, 42, time.UTC)
	session := domain.NewSession(key, "alice", now)
	session.AddParticipant("bob")
	session.AddParticipant("carol")
	session.Code.Append("(defun add (a b)\n(+ a b))\n(add 1 2)")
	session.UpdatedAt = now.Add(time.Hour)
	return session
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	session := sampleSession("t1")
	require.NoError(t, repo.Create(context.Background(), session))

	got, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestRepositoryGetMissing(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRepositoryCreateRefusesExistingKey(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	original := sampleSession("t1")
	require.NoError(t, repo.Create(context.Background(), original))

	err := repo.Create(context.Background(), domain.NewSession("t1", "mallory", time.Time{}))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	got, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, original.Participants, got.Participants)
}

func TestRepositorySaveReplacesParticipantsAndCode(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	session := sampleSession("t1")
	require.NoError(t, repo.Create(context.Background(), session))

	session.Participants = []domain.ParticipantID{"carol", "alice"}
	session.Code = domain.NewCodeBuffer("(+ 1 1)")
	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestRepositorySaveCreatesMissingSession(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	session := sampleSession("fresh")
	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.Get(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestRepositoryListAndPersistAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.db")
	first := openTestRepository(t, path)
	require.NoError(t, first.Create(context.Background(), sampleSession("b")))
	require.NoError(t, first.Create(context.Background(), sampleSession("a")))
	require.NoError(t, first.Close())

	second := openTestRepository(t, path)
	sessions, err := second.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, domain.ThreadKey("a"), sessions[0].Key)
	assert.Equal(t, sampleSession("b"), sessions[1])
}

func TestRepositoryRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t, "")
	require.ErrorIs(t, repo.Save(context.Background(), domain.Session{Key: "x"}), domain.ErrInvalidSession)
}

func TestRepositoryConcurrentCreateFromSeparateHandles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.db")
	handles := []*Repository{openTestRepository(t, path), openTestRepository(t, path)}

	const attempts = 8
	var wg sync.WaitGroup
	var created atomic.Int32
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := handles[i%2].Create(context.Background(), domain.NewSession("race", domain.ParticipantID(fmt.Sprintf("p%d", i)), time.Time{}))
			if err == nil {
				created.Add(1)
				return
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), created.Load())
	for err := range errs {
		require.ErrorIs(t, err, domain.ErrSessionExists)
	}

	got, err := handles[0].Get(context.Background(), "race")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}
