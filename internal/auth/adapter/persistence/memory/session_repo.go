package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kinto-admin/internal/auth/domain/model"
	apperrors "kinto-admin/internal/shared/errors"
)

// SessionRepository keeps sessions in process memory. It is used when no
// MongoDB is configured and in tests.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewSessionRepository creates an empty in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Save creates or replaces a session
func (r *SessionRepository) Save(_ context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session.UpdatedAt = r.now()
	if existing, ok := r.sessions[session.ID]; ok && session.CreatedAt.IsZero() {
		session.CreatedAt = existing.CreatedAt
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	r.sessions[session.ID] = *session
	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return &s, nil
}

// Delete deletes a session by ID
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return apperrors.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// ListActive returns unexpired sessions, most recently updated first.
// Expired sessions are dropped on the way.
func (r *SessionRepository) ListActive(_ context.Context) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	out := make([]*model.Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			continue
		}
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
