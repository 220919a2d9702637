package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-proctor-service/internal/domain"
)

// ParticipantStore is an in-memory implementation of app.ParticipantStore.
// All lifecycle mutations happen under one mutex, which gives the conditional
// transitions their atomicity.
type ParticipantStore struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Participant
	order []string
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{byID: make(map[string]*domain.Participant)}
}

func (s *ParticipantStore) FindByIdentity(_ context.Context, registerNo, email string) (domain.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.findLocked(registerNo, email); p != nil {
		return clone(p), true, nil
	}
	return domain.Participant{}, false, nil
}

func (s *ParticipantStore) Create(_ context.Context, p domain.Participant) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock so two concurrent first-time logins with
	// the same register number resolve to one record.
	if existing := s.findLocked(p.RegisterNo, p.Email); existing != nil {
		return clone(existing), nil
	}
	p.ID = uuid.NewString()
	if p.AttemptStatus == "" {
		p.AttemptStatus = domain.StatusNotAttempted
	}
	stored := clone(&p)
	s.byID[p.ID] = &stored
	s.order = append(s.order, p.ID)
	return p, nil
}

func (s *ParticipantStore) Get(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return clone(p), nil
}

func (s *ParticipantStore) StartAttempt(_ context.Context, id string, startedAt time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if p.AttemptStatus == domain.StatusCompleted {
		return domain.Participant{}, domain.ErrAlreadyCompleted
	}
	p.AttemptStatus = domain.StatusInProgress
	if p.QuizStartTime == nil {
		start := startedAt
		p.QuizStartTime = &start
	}
	return clone(p), nil
}

func (s *ParticipantStore) CompleteAttempt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	switch p.AttemptStatus {
	case domain.StatusInProgress:
		p.AttemptStatus = domain.StatusCompleted
		return nil
	case domain.StatusCompleted:
		return domain.ErrAlreadySubmitted
	default:
		return domain.ErrAttemptNotStarted
	}
}

func (s *ParticipantStore) ListInProgress(_ context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0)
	for _, id := range s.order {
		if p := s.byID[id]; p.AttemptStatus == domain.StatusInProgress {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

// findLocked scans in insertion order so the first matching record wins.
func (s *ParticipantStore) findLocked(registerNo, email string) *domain.Participant {
	for _, id := range s.order {
		p := s.byID[id]
		if p.RegisterNo == registerNo || p.Email == email {
			return p
		}
	}
	return nil
}

func clone(p *domain.Participant) domain.Participant {
	out := *p
	if p.QuizStartTime != nil {
		start := *p.QuizStartTime
		out.QuizStartTime = &start
	}
	return out
}
