package memory

import (
	"context"
	"sync"

	"quiz-proctor-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore.
// Save is first-write-wins; the attempt state machine should already have
// serialized callers, this is the backstop.
type SubmissionStore struct {
	mu            sync.RWMutex
	byParticipant map[string]domain.Submission
	order         []string
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{byParticipant: make(map[string]domain.Submission)}
}

func (s *SubmissionStore) Save(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byParticipant[sub.ParticipantID]; ok {
		return domain.ErrAlreadySubmitted
	}
	s.byParticipant[sub.ParticipantID] = sub
	s.order = append(s.order, sub.ParticipantID)
	return nil
}

func (s *SubmissionStore) Get(_ context.Context, participantID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byParticipant[participantID]
	if !ok {
		return domain.Submission{}, domain.ErrNoSubmission
	}
	return sub, nil
}

func (s *SubmissionStore) List(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byParticipant[id])
	}
	return out, nil
}
