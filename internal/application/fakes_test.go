package application

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/bnema/lisp-sessions/internal/domain"
)

// memoryRepository yields between load and save so unserialized updates
// would interleave.
type memoryRepository struct {
	mu       sync.Mutex
	sessions map[domain.ThreadKey]domain.Session
	saveErr  error
	saves    int
}

func newMemoryRepository(sessions ...domain.Session) *memoryRepository {
	repo := &memoryRepository{sessions: make(map[domain.ThreadKey]domain.Session)}
	for _, session := range sessions {
		repo.sessions[session.Key] = session.Clone()
	}
	return repo
}

func (r *memoryRepository) Get(_ context.Context, key domain.ThreadKey) (domain.Session, error) {
	r.mu.Lock()
	session, ok := r.sessions[key]
	r.mu.Unlock()
	runtime.Gosched()

	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
	}
	return session.Clone(), nil
}

func (r *memoryRepository) Save(_ context.Context, session domain.Session) error {
	runtime.Gosched()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.sessions[session.Key] = session.Clone()
	return nil
}

func (r *memoryRepository) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, session.Key)
	}
	r.sessions[session.Key] = session.Clone()
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, session.Clone())
	}
	return out, nil
}

func (r *memoryRepository) snapshot(key domain.ThreadKey) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[key].Clone()
}

type sequenceNames struct {
	mu    sync.Mutex
	names []string
}

func (s *sequenceNames) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.names) == 0 {
		return ""
	}
	name := s.names[0]
	s.names = s.names[1:]
	return name
}
