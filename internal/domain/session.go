package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ThreadKey identifies a session. It is opaque to this package: a chat
// thread ID, a channel ID or a generated name all work.
type ThreadKey string

type ParticipantID string

type Session struct {
	Key          ThreadKey
	Participants []ParticipantID
	Code         CodeBuffer
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewSession(key ThreadKey, creator ParticipantID, now time.Time) Session {
	return Session{
		Key:          key,
		Participants: []ParticipantID{creator},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s Session) HasParticipant(id ParticipantID) bool {
	return lo.Contains(s.Participants, id)
}

// AddParticipant adds id to the participant set. Participants are never
// removed. It reports false when id was already a participant.
func (s *Session) AddParticipant(id ParticipantID) bool {
	if s.HasParticipant(id) {
		return false
	}

	s.Participants = append(s.Participants, id)
	return true
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.Key)) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidSession)
	}
	if len(s.Participants) == 0 {
		return fmt.Errorf("%w: session %s has no participants", ErrInvalidSession, s.Key)
	}
	for _, participant := range s.Participants {
		if strings.TrimSpace(string(participant)) == "" {
			return fmt.Errorf("%w: session %s has an empty participant", ErrInvalidSession, s.Key)
		}
	}

	return nil
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	clone := s
	clone.Participants = append([]ParticipantID(nil), s.Participants...)
	return clone
}

// NormalizeParticipants trims identities and drops empty and duplicate
// entries while keeping first-seen order.
func (s *Session) NormalizeParticipants() {
	if s == nil {
		return
	}

	trimmed := lo.Map(s.Participants, func(id ParticipantID, _ int) ParticipantID {
		return ParticipantID(strings.TrimSpace(string(id)))
	})
	s.Participants = lo.Uniq(lo.Compact(trimmed))
}
