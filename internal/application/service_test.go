package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/engine"
	"github.com/bnema/lisp-sessions/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, repo *memoryRepository, names ...string) *Service {
	t.Helper()

	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	return NewService(repo, eng, &sequenceNames{names: names}, fixedTestClock(), slog.New(slog.DiscardHandler))
}

func TestServiceStartSessionWithGeneratedName(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(t, repo, "brave-lambda-1a2b")

	key, err := service.StartSession(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadKey("brave-lambda-1a2b"), key)

	stored := repo.snapshot(key)
	assert.Equal(t, []domain.ParticipantID{"alice"}, stored.Participants)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.True(t, stored.Code.IsEmpty())
}

func TestServiceStartSessionRejectsDuplicates(t *testing.T) {
	repo := newMemoryRepository(newTestSession("taken", "bob"))
	service := newTestService(t, repo)

	_, err := service.StartSession(context.Background(), "alice", "taken")
	require.ErrorIs(t, err, domain.ErrSessionExists)
	assert.Equal(t, "Can't start new session :(", UserMessage(ActionStart, err, "alice"))
}

func TestServiceStartSessionRequiresCreator(t *testing.T) {
	service := newTestService(t, newMemoryRepository())

	_, err := service.StartSession(context.Background(), "  ", "name")
	require.ErrorIs(t, err, ErrEmptyCaller)
}

func TestServiceStartSessionUsesRepositoryCreate(t *testing.T) {
	repo := mocks.NewMockSessionRepository(t)
	clock := mocks.NewMockClock(t)
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	service := NewService(repo, eng, nil, clock, nil)

	clock.EXPECT().Now().Return(testNow)
	repo.EXPECT().Create(mockAnyContext(), domain.NewSession("room", "alice", testNow)).Return(nil)

	key, err := service.StartSession(context.Background(), "alice", "room")
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadKey("room"), key)
}

func TestServiceAppendCodeEvaluatesBalancedBuffer(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice"))
	service := newTestService(t, repo)

	result, err := service.AppendCode(context.Background(), "t1", "alice", "```lisp\n(define (sq x)\n(* x x))\n(sq 7)\n```")
	require.NoError(t, err)

	assert.True(t, result.Balance.IsBalanced())
	assert.Equal(t, "(define (sq x)\n\t(* x x))\n(sq 7)", result.Code.Text())
	assert.Equal(t, "<sq (x)>\n49\n", result.Evaluation)
	assert.Equal(t, "```lisp\n(define (sq x)\n\t(* x x))\n(sq 7)\n```\n<sq (x)>\n49", result.Message())
	assert.Equal(t, result.Code.Text(), repo.snapshot("t1").Code.Text())
}

func TestServiceAppendCodeReportsMissingClosers(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice"))
	service := newTestService(t, repo)

	result, err := service.AppendCode(context.Background(), "t1", "alice", "(define f (lambda (n) (+ n 1")
	require.NoError(t, err)

	assert.Equal(t, domain.Balance{State: domain.MissingClosers, Count: 3}, result.Balance)
	assert.Empty(t, result.Evaluation)
	assert.Equal(t, "```lisp\n(define f (lambda (n) (+ n 1\n```\n; missing 3 closing parentheses", result.Message())
}

func TestServiceAppendCodeRejectsEmptyFragment(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice"))
	service := newTestService(t, repo)

	_, err := service.AppendCode(context.Background(), "t1", "alice", "``````")
	require.ErrorIs(t, err, ErrTransformFailed)
	require.ErrorIs(t, err, ErrEmptyFragment)
	assert.Zero(t, repo.saves)
}

func TestServiceAppendCodeNotAllowed(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice"))
	service := newTestService(t, repo)

	_, err := service.AppendCode(context.Background(), "t1", "mallory", "(f)")
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, "Hey mallory! You are not allowed edit here.", UserMessage(ActionAppend, err, "mallory"))
	assert.True(t, repo.snapshot("t1").Code.IsEmpty())
}

func TestServiceDeleteLine(t *testing.T) {
	session := newTestSession("t1", "alice")
	session.Code = domain.NewCodeBuffer("a\nb\nc")
	repo := newMemoryRepository(session)
	service := newTestService(t, repo)

	msg, err := service.DeleteLine(context.Background(), "t1", "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "Deleted `b`", msg)
	assert.Equal(t, "a\nc", repo.snapshot("t1").Code.Text())

	msg, err = service.DeleteLine(context.Background(), "t1", "alice", 5)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to delete", msg)

	_, err = service.DeleteLine(context.Background(), "t1", "alice", -1)
	require.ErrorIs(t, err, ErrTransformFailed)
	require.ErrorIs(t, err, domain.ErrNegativeLineIndex)
	assert.Equal(t, "a\nc", repo.snapshot("t1").Code.Text())
}

func TestServiceInvite(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice"))
	service := newTestService(t, repo)

	msg, err := service.Invite(context.Background(), "t1", "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob is now part of this session", msg)

	msg, err = service.Invite(context.Background(), "t1", "bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob is already part of this session", msg)

	assert.Equal(t, []domain.ParticipantID{"alice", "bob"}, repo.snapshot("t1").Participants)

	_, err = service.Invite(context.Background(), "t1", "alice", " ")
	require.ErrorIs(t, err, ErrEmptyInvitee)

	_, err = service.Invite(context.Background(), "nowhere", "alice", "bob")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "You can't collaborate outside of a session.", UserMessage(ActionInvite, err, "alice"))
}

func TestServiceEvaluate(t *testing.T) {
	session := newTestSession("t1", "alice")
	session.Code = domain.NewCodeBuffer("(define x 4)\n(* x x)")
	service := newTestService(t, newMemoryRepository(session))

	report, err := service.Evaluate(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, "4\n16\n", report.Render(service.RenderOptions()))

	report, err = service.Evaluate(context.Background(), "elsewhere", "`(+ 1 2)`")
	require.NoError(t, err)
	assert.Equal(t, "3\n", report.Render(service.RenderOptions()))

	report, err = service.Evaluate(context.Background(), "", "(+ 1 1) (+ 2 2)")
	require.NoError(t, err)
	assert.Equal(t, "Wrong number of S-expressions, 2", report.Render(service.RenderOptions()))

	_, err = service.Evaluate(context.Background(), "", " ")
	require.ErrorIs(t, err, ErrInputRequired)
	assert.Equal(t, "Missing S-expression", UserMessage(ActionEvaluate, err, "alice"))
}

func TestServiceShowAndList(t *testing.T) {
	older := newTestSession("older", "alice")
	older.UpdatedAt = testNow.Add(-2 * time.Hour)
	newer := newTestSession("newer", "bob")
	newer.UpdatedAt = testNow
	newer.Code = domain.NewCodeBuffer("(a\n\t(b)")
	service := newTestService(t, newMemoryRepository(older, newer))

	views, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, domain.ThreadKey("newer"), views[0].Key)
	assert.Equal(t, domain.ThreadKey("older"), views[1].Key)

	view, err := service.Show(context.Background(), "newer")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines)
	assert.Equal(t, domain.Balance{State: domain.MissingClosers, Count: 1}, view.Balance)

	_, err = service.Show(context.Background(), "none")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceConcurrentAppendsKeepEveryLine(t *testing.T) {
	repo := newMemoryRepository(newTestSession("t1", "alice", "bob"))
	service := newTestService(t, repo)

	const n = 32
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		caller := domain.ParticipantID("alice")
		if i%2 == 1 {
			caller = "bob"
		}
		go func(i int, caller domain.ParticipantID) {
			_, err := service.AppendCode(context.Background(), "t1", caller, fmt.Sprintf("(print %d)", i))
			errs <- err
		}(i, caller)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	lines := repo.snapshot("t1").Code.Lines()
	require.Len(t, lines, n)
	for i := 0; i < n; i++ {
		assert.Contains(t, lines, fmt.Sprintf("(print %d)", i))
	}
}

func TestUserMessage(t *testing.T) {
	persist := &OpError{Kind: KindPersistFailed, Key: "t1", Err: errors.New("disk")}
	transform := &OpError{Kind: KindTransformFailed, Key: "t1", Err: errors.New("bad")}
	denied := &OpError{Kind: KindNotAllowed, Key: "t1"}

	tests := []struct {
		action Action
		err    error
		want   string
	}{
		{action: ActionAppend, err: nil, want: ""},
		{action: ActionAppend, err: persist, want: "Sorry, I failed to update your code. Maybe try again."},
		{action: ActionDelete, err: persist, want: "Failed to execute deletion"},
		{action: ActionInvite, err: persist, want: "Failed to create invite"},
		{action: ActionDelete, err: denied, want: "Hey carol! You are not allowed to delete stuff here."},
		{action: ActionInvite, err: denied, want: "Hey carol! This is not your own session, you can't invite people."},
		{action: ActionDelete, err: transform, want: "I received an invalid request. Maybe try again."},
		{action: ActionEvaluate, err: errors.New("other"), want: "Something went wrong. Maybe try again."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.action, tt.err, "carol"))
	}
}
