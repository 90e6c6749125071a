package application

import (
	"errors"
	"fmt"

	"github.com/bnema/lisp-sessions/internal/domain"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrNotAllowed      = errors.New("caller is not a participant")
	ErrTransformFailed = errors.New("session transform failed")
	ErrPersistFailed   = errors.New("session persist failed")
	ErrLoadFailed      = errors.New("session load failed")

	ErrInputRequired = errors.New("expression required outside of a session")
	ErrEmptyFragment = errors.New("fragment holds no code")
	ErrEmptyInvitee  = errors.New("invitee is required")
	ErrEmptyCaller   = errors.New("caller is required")
)

type OpKind int

const (
	KindNotFound OpKind = iota + 1
	KindNotAllowed
	KindTransformFailed
	KindPersistFailed
	KindLoadFailed
)

func (k OpKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindNotAllowed:
		return "not allowed"
	case KindTransformFailed:
		return "transform failed"
	case KindPersistFailed:
		return "persist failed"
	case KindLoadFailed:
		return "load failed"
	default:
		return "unknown"
	}
}

func (k OpKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindNotAllowed:
		return ErrNotAllowed
	case KindTransformFailed:
		return ErrTransformFailed
	case KindPersistFailed:
		return ErrPersistFailed
	case KindLoadFailed:
		return ErrLoadFailed
	default:
		return nil
	}
}

// OpError is returned by RunUpdate. errors.Is matches it against the
// sentinel of its kind, and Unwrap exposes the underlying cause.
type OpError struct {
	Kind OpKind
	Key  domain.ThreadKey
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session %s: %s", e.Key, e.Kind)
	}
	return fmt.Sprintf("session %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *OpError) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

func (e *OpError) Unwrap() error {
	return e.Err
}
