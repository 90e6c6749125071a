package domain

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrInvalidSession    = errors.New("invalid session")
	ErrNotAllowed        = errors.New("caller is not a participant of the session")
	ErrNegativeLineIndex = errors.New("line index must not be negative")
)
