package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/engine"
	"github.com/bnema/lisp-sessions/internal/ports"
)

// Service exposes the session operations. Every mutation goes through the
// coordinator.
type Service struct {
	repo        ports.SessionRepository
	coordinator *Coordinator
	engine      *engine.Engine
	names       ports.NameGenerator
	clock       ports.Clock
	log         *slog.Logger
}

func NewService(repo ports.SessionRepository, eng *engine.Engine, names ports.NameGenerator, clock ports.Clock, log *slog.Logger, opts ...CoordinatorOption) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Service{
		repo:        repo,
		coordinator: NewCoordinator(repo, clock, log, opts...),
		engine:      eng,
		names:       names,
		clock:       clock,
		log:         log,
	}
}

func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}

// StartSession creates a session owned by creator. An empty name is
// replaced by a generated one.
func (s *Service) StartSession(ctx context.Context, creator domain.ParticipantID, name string) (domain.ThreadKey, error) {
	creator = domain.ParticipantID(strings.TrimSpace(string(creator)))
	if creator == "" {
		return "", ErrEmptyCaller
	}

	name = strings.TrimSpace(name)
	if name == "" && s.names != nil {
		name = s.names.Next()
	}

	session := domain.NewSession(domain.ThreadKey(name), creator, s.clock.Now())
	if err := session.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	s.log.Info("session started", "key", session.Key, "creator", creator)
	return session.Key, nil
}

// AppendCode adds fragment to the session code. Once the buffer is
// balanced the whole buffer is evaluated, outside of the session lock.
func (s *Service) AppendCode(ctx context.Context, key domain.ThreadKey, caller domain.ParticipantID, fragment string) (AppendResult, error) {
	var snapshot domain.CodeBuffer
	_, err := s.coordinator.RunUpdate(ctx, key, caller, TransformFunc(func(session *domain.Session) (string, error) {
		if domain.ExtractCode(fragment) == "" {
			return "", ErrEmptyFragment
		}
		session.Code.Append(fragment)
		snapshot = session.Code
		return snapshot.Render(), nil
	}))
	if err != nil {
		return AppendResult{}, err
	}

	result := AppendResult{Code: snapshot, Balance: snapshot.Balance()}
	if result.Balance.IsBalanced() && s.engine != nil {
		report := s.engine.EvaluateBuffer(ctx, snapshot.Text())
		if report.Skipped > 0 {
			s.log.Debug("skipped unparseable expressions", "key", key, "count", report.Skipped)
		}
		result.Evaluation = report.Render(s.engine.RenderOptions())
	}
	return result, nil
}

// DeleteLine removes one line counted from the end, 0 being the last.
func (s *Service) DeleteLine(ctx context.Context, key domain.ThreadKey, caller domain.ParticipantID, index int) (string, error) {
	return s.coordinator.RunUpdate(ctx, key, caller, TransformFunc(func(session *domain.Session) (string, error) {
		deleted, ok, err := session.Code.Delete(index)
		if err != nil {
			return "", err
		}
		if !ok {
			return "Nothing to delete", nil
		}
		return fmt.Sprintf("Deleted `%s`", deleted), nil
	}))
}

// Invite adds invitee to the participants. Inviting someone twice is not
// an error.
func (s *Service) Invite(ctx context.Context, key domain.ThreadKey, caller, invitee domain.ParticipantID) (string, error) {
	invitee = domain.ParticipantID(strings.TrimSpace(string(invitee)))

	return s.coordinator.RunUpdate(ctx, key, caller, TransformFunc(func(session *domain.Session) (string, error) {
		if invitee == "" {
			return "", ErrEmptyInvitee
		}
		if !session.AddParticipant(invitee) {
			return fmt.Sprintf("%s is already part of this session", invitee), nil
		}
		return fmt.Sprintf("%s is now part of this session", invitee), nil
	}))
}

// Evaluate runs the code of the session at key. When there is no such
// session, input must hold exactly one expression.
func (s *Service) Evaluate(ctx context.Context, key domain.ThreadKey, input string) (engine.Report, error) {
	if key != "" {
		session, err := s.repo.Get(ctx, key)
		switch {
		case err == nil:
			return s.engine.EvaluateBuffer(ctx, session.Code.Text()), nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return engine.Report{}, &OpError{Kind: KindLoadFailed, Key: key, Err: err}
		}
		s.log.Debug("no session to evaluate, falling back to input", "key", key)
	}

	if strings.TrimSpace(domain.ExtractCode(input)) == "" {
		return engine.Report{}, ErrInputRequired
	}
	return s.engine.EvaluateSingle(ctx, domain.ExtractCode(input)), nil
}

func (s *Service) RenderOptions() engine.RenderOptions {
	return s.engine.RenderOptions()
}

func (s *Service) Show(ctx context.Context, key domain.ThreadKey) (SessionView, error) {
	session, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return SessionView{}, &OpError{Kind: KindNotFound, Key: key, Err: err}
		}
		return SessionView{}, fmt.Errorf("get session: %w", err)
	}
	return newSessionView(session), nil
}

// List returns every session, most recently updated first.
func (s *Service) List(ctx context.Context) ([]SessionView, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session))
	}
	slices.SortStableFunc(views, func(a, b SessionView) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return views, nil
}
