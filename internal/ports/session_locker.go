package ports

import (
	"context"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// SessionLocker serializes updates to one session across processes.
type SessionLocker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases it.
	Lock(ctx context.Context, key domain.ThreadKey) (func() error, error)
}
