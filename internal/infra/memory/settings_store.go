package memory

import (
	"context"
	"sync"

	"quiz-proctor-service/internal/domain"
)

// SettingsStore holds the quiz settings snapshot. Tests construct it with
// arbitrary settings; Update models the administrative write path.
type SettingsStore struct {
	mu      sync.RWMutex
	current domain.QuizSettings
}

func NewSettingsStore(initial domain.QuizSettings) *SettingsStore {
	return &SettingsStore{current: initial}
}

func (s *SettingsStore) Current(_ context.Context) (domain.QuizSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *SettingsStore) Update(_ context.Context, settings domain.QuizSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = settings
	return nil
}
