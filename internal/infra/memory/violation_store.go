package memory

import (
	"context"
	"sync"
	"time"

	"quiz-proctor-service/internal/domain"
)

// ViolationStore keeps per-participant violation counters behind a mutex so
// near-simultaneous reports from duplicate tabs never lose an increment.
type ViolationStore struct {
	mu      sync.Mutex
	records map[string]*domain.ViolationRecord
}

func NewViolationStore() *ViolationStore {
	return &ViolationStore{records: make(map[string]*domain.ViolationRecord)}
}

func (s *ViolationStore) Increment(_ context.Context, participantID, violationType, deviceInfo string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[participantID]
	if !ok {
		record = &domain.ViolationRecord{ParticipantID: participantID, DeviceInfo: deviceInfo}
		s.records[participantID] = record
	}
	record.Count++
	record.LastType = violationType
	record.LastSeen = at
	return record.Count, nil
}

func (s *ViolationStore) Get(_ context.Context, participantID string) (domain.ViolationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[participantID]; ok {
		return *record, nil
	}
	return domain.ViolationRecord{ParticipantID: participantID}, nil
}
