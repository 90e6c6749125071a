package application

import (
	"strings"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// SessionView is a read-only snapshot of a session for display.
type SessionView struct {
	Key          domain.ThreadKey
	Participants []domain.ParticipantID
	Code         string
	Lines        int
	Balance      domain.Balance
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func newSessionView(session domain.Session) SessionView {
	return SessionView{
		Key:          session.Key,
		Participants: append([]domain.ParticipantID(nil), session.Participants...),
		Code:         session.Code.Text(),
		Lines:        len(session.Code.Lines()),
		Balance:      session.Code.Balance(),
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
}

// AppendResult is what a caller sees after adding code: the whole buffer,
// its balance and, once balanced, the evaluation of the buffer.
type AppendResult struct {
	Code       domain.CodeBuffer
	Balance    domain.Balance
	Evaluation string
}

func (r AppendResult) Message() string {
	msg := r.Code.Render()
	if !r.Balance.IsBalanced() {
		return msg + "\n; " + r.Balance.String()
	}
	if r.Evaluation != "" {
		msg += "\n" + strings.TrimSuffix(r.Evaluation, "\n")
	}
	return msg
}
