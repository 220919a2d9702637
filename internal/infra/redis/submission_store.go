package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-proctor-service/internal/domain"
)

// SubmissionStore persists submissions as JSON values claimed with SETNX, so
// the first writer wins and a duplicate save surfaces as ErrAlreadySubmitted.
type SubmissionStore struct {
	client *redis.Client
}

func NewSubmissionStore(client *redis.Client) *SubmissionStore {
	return &SubmissionStore{client: client}
}

func (s *SubmissionStore) Save(ctx context.Context, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	stored, err := s.client.SetNX(ctx, submissionKey(sub.ParticipantID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	if !stored {
		return domain.ErrAlreadySubmitted
	}
	if err := s.client.SAdd(ctx, submissionIndexKey, sub.ParticipantID).Err(); err != nil {
		return fmt.Errorf("index submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, participantID string) (domain.Submission, error) {
	raw, err := s.client.Get(ctx, submissionKey(participantID)).Bytes()
	if err == redis.Nil {
		return domain.Submission{}, domain.ErrNoSubmission
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	}
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionStore) List(ctx context.Context) ([]domain.Submission, error) {
	ids, err := s.client.SMembers(ctx, submissionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(ids))
	for _, id := range ids {
		sub, err := s.Get(ctx, id)
		if err == domain.ErrNoSubmission {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

const submissionIndexKey = "submissions:index"

func submissionKey(participantID string) string {
	return "submission:" + participantID
}
