package repository

import (
	"context"
	"errors"
	"sync"

	"mofo-asi/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository guarda las sesiones de cita en curso. Las lecturas
// devuelven copias: el estado vivo solo lo muta el orquestador.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.DatingSession) error
	Get(ctx context.Context, id string) (*domain.DatingSession, error)
	Update(ctx context.Context, session *domain.DatingSession) error
	ListActive(ctx context.Context) ([]*domain.DatingSession, error)
}

// InMemorySessionRepository es la fuente de verdad de sesiones: las citas
// son efimeras y viven lo que vive el proceso.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.DatingSession
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[string]*domain.DatingSession)}
}

func (r *InMemorySessionRepository) Create(_ context.Context, session *domain.DatingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := session.Clone()
	r.sessions[session.ID] = &copied
	return nil
}

func (r *InMemorySessionRepository) Get(_ context.Context, id string) (*domain.DatingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := session.Clone()
	return &copied, nil
}

func (r *InMemorySessionRepository) Update(_ context.Context, session *domain.DatingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	copied := session.Clone()
	r.sessions[session.ID] = &copied
	return nil
}

func (r *InMemorySessionRepository) ListActive(_ context.Context) ([]*domain.DatingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []*domain.DatingSession
	for _, s := range r.sessions {
		if s.Status == domain.SessionStatusActive {
			copied := s.Clone()
			active = append(active, &copied)
		}
	}
	return active, nil
}
