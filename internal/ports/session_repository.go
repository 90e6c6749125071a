package ports

import (
	"context"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// SessionRepository persists sessions as single records. Implementations
// do not serialize read-modify-write cycles; callers do.
type SessionRepository interface {
	// Get returns domain.ErrSessionNotFound when key is unknown.
	Get(ctx context.Context, key domain.ThreadKey) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	// Create returns domain.ErrSessionExists when the key is taken.
	Create(ctx context.Context, session domain.Session) error
	List(ctx context.Context) ([]domain.Session, error)
}
