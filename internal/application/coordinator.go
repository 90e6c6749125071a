package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/ports"
)

// Transform mutates a loaded session and returns the message for the
// caller. A failing transform leaves no trace in the store.
type Transform interface {
	Apply(session *domain.Session) (string, error)
}

type TransformFunc func(session *domain.Session) (string, error)

func (f TransformFunc) Apply(session *domain.Session) (string, error) {
	return f(session)
}

// Coordinator is the only writer of sessions. Updates to one key run one
// at a time; different keys do not wait on each other. With a session
// locker the guarantee extends to other processes sharing the store.
type Coordinator struct {
	repo   ports.SessionRepository
	clock  ports.Clock
	locks  *keyedLock
	locker ports.SessionLocker
	log    *slog.Logger
}

type CoordinatorOption func(*Coordinator)

// WithSessionLocker holds locker's lock for the key around the whole
// load, transform and save cycle.
func WithSessionLocker(locker ports.SessionLocker) CoordinatorOption {
	return func(c *Coordinator) {
		c.locker = locker
	}
}

func NewCoordinator(repo ports.SessionRepository, clock ports.Clock, log *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c := &Coordinator{
		repo:  repo,
		clock: clock,
		locks: newKeyedLock(),
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunUpdate loads the session, checks that caller takes part in it,
// applies transform to a copy and saves the copy. The transform runs only
// for participants, and nothing is saved unless it succeeds.
func (c *Coordinator) RunUpdate(ctx context.Context, key domain.ThreadKey, caller domain.ParticipantID, transform Transform) (string, error) {
	unlock, err := c.locks.Lock(ctx, key)
	if err != nil {
		return "", fmt.Errorf("wait for session %s: %w", key, err)
	}
	defer unlock()

	if c.locker != nil {
		release, err := c.locker.Lock(ctx, key)
		if err != nil {
			return "", fmt.Errorf("wait for session %s: %w", key, err)
		}
		defer func() {
			if err := release(); err != nil {
				c.log.Warn("failed to release session lock", "key", key, "error", err)
			}
		}()
	}

	session, err := c.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.log.Debug("no session for update", "key", key, "caller", caller)
			return "", &OpError{Kind: KindNotFound, Key: key, Err: err}
		}
		c.log.Error("failed to load session", "key", key, "error", err)
		return "", &OpError{Kind: KindLoadFailed, Key: key, Err: err}
	}

	if !session.HasParticipant(caller) {
		c.log.Info("update rejected", "key", key, "caller", caller)
		return "", &OpError{Kind: KindNotAllowed, Key: key, Err: fmt.Errorf("%w: %s", domain.ErrNotAllowed, caller)}
	}

	working := session.Clone()
	message, err := transform.Apply(&working)
	if err != nil {
		c.log.Debug("transform failed", "key", key, "caller", caller, "error", err)
		return "", &OpError{Kind: KindTransformFailed, Key: key, Err: err}
	}

	working.UpdatedAt = c.clock.Now()
	if err := c.repo.Save(ctx, working); err != nil {
		c.log.Error("session update not persisted", "key", key, "caller", caller, "message", message, "error", err)
		return "", &OpError{Kind: KindPersistFailed, Key: key, Err: err}
	}

	return message, nil
}
