package toml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("store.path", filepath.Join(t.TempDir(), "sessions"))

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func sampleSession(key domain.ThreadKey) domain.Session {
	now := time.Date(2026, 10, 19, 11, 0, 0, 123456789, time.UTC)
	session := domain.NewSession(key, "alice", now)
	session.AddParticipant("bob")
	session.Code.Append("(define (sq x)\n(* x x))")
	session.Code.Append("(print \"tab\there\")")
	session.UpdatedAt = now.Add(time.Minute)
	return session
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	first := sampleSession("thread/1")
	second := sampleSession("thread-2")

	require.NoError(t, repo.Create(context.Background(), first))
	require.NoError(t, repo.Create(context.Background(), second))

	got, err := repo.Get(context.Background(), first.Key)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Session{first, second}, sessions)
}

func TestRepositoryGetMissingSession(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRepositoryCreateRefusesExistingKey(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	session := sampleSession("k")
	require.NoError(t, repo.Create(context.Background(), session))

	err := repo.Create(context.Background(), domain.NewSession("k", "mallory", time.Time{}))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	got, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, session.Participants, got.Participants)
}

func TestRepositorySaveOverwritesWholeSession(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	session := sampleSession("k")
	require.NoError(t, repo.Create(context.Background(), session))

	_, _, err := session.Code.Delete(0)
	require.NoError(t, err)
	session.AddParticipant("carol")
	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestRepositoryRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	err := repo.Save(context.Background(), domain.Session{Key: "k"})
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestRepositoryKeepsKeysInsideDirectory(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	session := sampleSession("../../escape")
	require.NoError(t, repo.Create(context.Background(), session))

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "session-"))
}

func TestRepositoryRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	require.NoError(t, os.MkdirAll(repo.Dir(), 0o700))
	require.NoError(t, os.WriteFile(repo.pathForKey("k"), []byte(strings.Join([]string{
		"version = 2",
		"",
		"[session]",
		"key = \"k\"",
		"participants = [\"alice\"]",
	}, "\n")), 0o600))

	_, err := repo.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported session schema version 2")
}

func TestRepositoryReadsHandWrittenFile(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	require.NoError(t, os.MkdirAll(repo.Dir(), 0o700))
	require.NoError(t, os.WriteFile(repo.pathForKey("k"), []byte(strings.Join([]string{
		"[session]",
		"key = \"k\"",
		"participants = [\"alice\", \" alice \", \"\"]",
		"code = \"\"\"",
		"(+ 1",
		"\t2)\"\"\"",
	}, "\n")), 0o600))

	got, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"alice"}, got.Participants)
	assert.Equal(t, "(+ 1\n\t2)", got.Code.Text())
	assert.True(t, got.CreatedAt.IsZero())
}

func TestRepositoryConcurrentSavesLeaveReadableFile(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	session := sampleSession("k")
	require.NoError(t, repo.Create(context.Background(), session))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := session.Clone()
			s.Code.Append(fmt.Sprintf("(line %d)", i))
			assert.NoError(t, repo.Save(context.Background(), s))
		}(i)
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Len(t, got.Code.Lines(), len(session.Code.Lines())+1)

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRepositoryHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, repo.Save(ctx, sampleSession("k")), context.Canceled)
}

func TestRepositoryCreateNeverReplacesExistingFile(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	require.NoError(t, os.MkdirAll(repo.Dir(), 0o700))
	path := repo.pathForKey("taken")
	written := "version = 1\n\n[session]\nkey = \"taken\"\nparticipants = [\"owner\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(written), 0o600))

	err := repo.Create(context.Background(), domain.NewSession("taken", "mallory", time.Time{}))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, written, string(data))

	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRepositoryConcurrentCreatesOnlyOneWins(t *testing.T) {
	t.Parallel()

	config := viper.New()
	config.Set("store.path", filepath.Join(t.TempDir(), "sessions"))
	first, err := NewRepository(config)
	require.NoError(t, err)
	second, err := NewRepository(config)
	require.NoError(t, err)
	repos := []*Repository{first, second}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- repos[i%2].Create(context.Background(), domain.NewSession("race", domain.ParticipantID(fmt.Sprintf("p%d", i)), time.Time{}))
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, domain.ErrSessionExists)
	}
	assert.Equal(t, 1, wins)
}
