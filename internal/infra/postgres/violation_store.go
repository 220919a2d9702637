package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-proctor-service/internal/domain"
)

// ViolationStore increments counters with a single upsert statement, so two
// tabs reporting at once both land their increment.
type ViolationStore struct {
	pool *pgxpool.Pool
}

func NewViolationStore(pool *pgxpool.Pool) *ViolationStore {
	return &ViolationStore{pool: pool}
}

func (s *ViolationStore) Increment(ctx context.Context, participantID, violationType, deviceInfo string, at time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO violations (participant_id, violation_count, last_type, device_info, last_seen)
		 VALUES ($1, 1, $2, $3, $4)
		 ON CONFLICT (participant_id) DO UPDATE SET
		   violation_count = violations.violation_count + 1,
		   last_type = EXCLUDED.last_type,
		   last_seen = EXCLUDED.last_seen
		 RETURNING violation_count`,
		participantID, violationType, deviceInfo, at).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment violation: %w", err)
	}
	return count, nil
}

func (s *ViolationStore) Get(ctx context.Context, participantID string) (domain.ViolationRecord, error) {
	record := domain.ViolationRecord{ParticipantID: participantID}
	err := s.pool.QueryRow(ctx,
		`SELECT violation_count, last_type, device_info, last_seen
		 FROM violations WHERE participant_id=$1`, participantID).
		Scan(&record.Count, &record.LastType, &record.DeviceInfo, &record.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.ViolationRecord{ParticipantID: participantID}, nil
	}
	if err != nil {
		return domain.ViolationRecord{}, fmt.Errorf("load violations: %w", err)
	}
	return record, nil
}
