package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-proctor-service/internal/domain"
)

// ViolationStore keeps one hash per participant:
//
//	HINCRBY violation:{id} count 1
//
// HINCRBY is atomic inside Redis, so concurrent reports never lose updates.
type ViolationStore struct {
	client *redis.Client
}

func NewViolationStore(client *redis.Client) *ViolationStore {
	return &ViolationStore{client: client}
}

func (s *ViolationStore) Increment(ctx context.Context, participantID, violationType, deviceInfo string, at time.Time) (int, error) {
	key := violationKey(participantID)
	count, err := s.client.HIncrBy(ctx, key, "count", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment violation: %w", err)
	}
	// Device info is recorded once, on the first violation.
	_ = s.client.HSetNX(ctx, key, "device_info", deviceInfo).Err()
	if err := s.client.HSet(ctx, key,
		"participant_id", participantID,
		"last_type", violationType,
		"last_seen", at.Format(time.RFC3339Nano),
	).Err(); err != nil {
		return 0, fmt.Errorf("record violation details: %w", err)
	}
	return int(count), nil
}

func (s *ViolationStore) Get(ctx context.Context, participantID string) (domain.ViolationRecord, error) {
	fields, err := s.client.HGetAll(ctx, violationKey(participantID)).Result()
	if err != nil {
		return domain.ViolationRecord{}, fmt.Errorf("load violations: %w", err)
	}
	record := domain.ViolationRecord{ParticipantID: participantID}
	if len(fields) == 0 {
		return record, nil
	}
	if count, err := strconv.Atoi(fields["count"]); err == nil {
		record.Count = count
	}
	record.LastType = fields["last_type"]
	record.DeviceInfo = fields["device_info"]
	if t, err := time.Parse(time.RFC3339Nano, fields["last_seen"]); err == nil {
		record.LastSeen = t
	}
	return record, nil
}

func violationKey(participantID string) string {
	return "violation:" + participantID
}
