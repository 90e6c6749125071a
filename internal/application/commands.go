package application

import (
	"errors"
	"fmt"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// Action names the user-facing operation an error came from, so the reply
// can say what failed.
type Action string

const (
	ActionStart    Action = "start"
	ActionAppend   Action = "append"
	ActionDelete   Action = "delete"
	ActionInvite   Action = "invite"
	ActionEvaluate Action = "evaluate"
)

func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionAppend, ActionDelete, ActionInvite, ActionEvaluate:
		return true
	default:
		return false
	}
}

// UserMessage turns an error from the service into the reply shown to
// caller. It returns "" for a nil error.
func UserMessage(action Action, err error, caller domain.ParticipantID) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAllowed):
		switch action {
		case ActionDelete:
			return fmt.Sprintf("Hey %s! You are not allowed to delete stuff here.", caller)
		case ActionInvite:
			return fmt.Sprintf("Hey %s! This is not your own session, you can't invite people.", caller)
		default:
			return fmt.Sprintf("Hey %s! You are not allowed edit here.", caller)
		}
	case errors.Is(err, ErrNotFound):
		if action == ActionInvite {
			return "You can't collaborate outside of a session."
		}
		return "There is no session here. Start one first."
	case errors.Is(err, ErrInputRequired):
		return "Missing S-expression"
	case errors.Is(err, ErrTransformFailed), errors.Is(err, ErrEmptyCaller):
		return "I received an invalid request. Maybe try again."
	case errors.Is(err, domain.ErrSessionExists), action == ActionStart:
		return "Can't start new session :("
	case errors.Is(err, ErrPersistFailed), errors.Is(err, ErrLoadFailed):
		switch action {
		case ActionDelete:
			return "Failed to execute deletion"
		case ActionInvite:
			return "Failed to create invite"
		default:
			return "Sorry, I failed to update your code. Maybe try again."
		}
	default:
		return "Something went wrong. Maybe try again."
	}
}
