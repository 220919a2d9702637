package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quiz-proctor-service/internal/domain"
)

// Participant state lives in a hash per participant:
//
//	HSET participant:{id} name ... register_no ... email ... status ... quiz_start ...
//
// Identity dedup is done with SETNX claims on register number and email, and
// the conditional lifecycle transitions run as Lua scripts so the
// check-and-set happens atomically inside Redis.
type ParticipantStore struct {
	client *redis.Client
}

func NewParticipantStore(client *redis.Client) *ParticipantStore {
	return &ParticipantStore{client: client}
}

// startAttemptScript: in_progress transition that stamps quiz_start only once.
// Returns 1 on success, 0 when already completed, -1 when missing.
var startAttemptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then return -1 end
local status = redis.call("HGET", KEYS[1], "status")
if status == "completed" then return 0 end
redis.call("HSET", KEYS[1], "status", "in_progress")
redis.call("HSETNX", KEYS[1], "quiz_start", ARGV[1])
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`)

// completeAttemptScript: terminal transition, succeeds only from in_progress.
// Returns 1 on success, 0 when already completed, -2 when not started, -1 when missing.
var completeAttemptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then return -1 end
local status = redis.call("HGET", KEYS[1], "status")
if status == "completed" then return 0 end
if status ~= "in_progress" then return -2 end
redis.call("HSET", KEYS[1], "status", "completed")
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`)

func (s *ParticipantStore) FindByIdentity(ctx context.Context, registerNo, email string) (domain.Participant, bool, error) {
	for _, key := range []string{registerKey(registerNo), emailKey(email)} {
		id, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return domain.Participant{}, false, fmt.Errorf("find participant: %w", err)
		}
		p, err := s.Get(ctx, id)
		if err != nil {
			return domain.Participant{}, false, err
		}
		return p, true, nil
	}
	return domain.Participant{}, false, nil
}

func (s *ParticipantStore) Create(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	p.ID = uuid.NewString()
	if p.AttemptStatus == "" {
		p.AttemptStatus = domain.StatusNotAttempted
	}

	// Claim the register number first; the loser of the race resolves to the
	// winner's record instead of creating a duplicate.
	claimed, err := s.client.SetNX(ctx, registerKey(p.RegisterNo), p.ID, 0).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("claim register no: %w", err)
	}
	if !claimed {
		return s.resolveClaim(ctx, registerKey(p.RegisterNo))
	}
	claimed, err = s.client.SetNX(ctx, emailKey(p.Email), p.ID, 0).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		_ = s.client.Del(ctx, registerKey(p.RegisterNo)).Err()
		return s.resolveClaim(ctx, emailKey(p.Email))
	}

	fields := map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"register_no": p.RegisterNo,
		"email":       p.Email,
		"status":      string(p.AttemptStatus),
		"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
	}
	if p.QuizStartTime != nil {
		fields["quiz_start"] = p.QuizStartTime.Format(time.RFC3339Nano)
	}
	if err := s.client.HSet(ctx, participantKey(p.ID), fields).Err(); err != nil {
		return domain.Participant{}, fmt.Errorf("store participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	fields, err := s.client.HGetAll(ctx, participantKey(id)).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load participant: %w", err)
	}
	if len(fields) == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participantFromHash(fields), nil
}

func (s *ParticipantStore) StartAttempt(ctx context.Context, id string, startedAt time.Time) (domain.Participant, error) {
	res, err := startAttemptScript.Run(ctx, s.client,
		[]string{participantKey(id), inProgressKey},
		startedAt.Format(time.RFC3339Nano), id,
	).Int()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("start attempt: %w", err)
	}
	switch res {
	case 1:
		return s.Get(ctx, id)
	case 0:
		return domain.Participant{}, domain.ErrAlreadyCompleted
	default:
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
}

func (s *ParticipantStore) CompleteAttempt(ctx context.Context, id string) error {
	res, err := completeAttemptScript.Run(ctx, s.client,
		[]string{participantKey(id), inProgressKey}, id,
	).Int()
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return domain.ErrAlreadySubmitted
	case -2:
		return domain.ErrAttemptNotStarted
	default:
		return domain.ErrParticipantNotFound
	}
}

func (s *ParticipantStore) ListInProgress(ctx context.Context) ([]domain.Participant, error) {
	ids, err := s.client.SMembers(ctx, inProgressKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list in-progress: %w", err)
	}
	out := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err == domain.ErrParticipantNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ParticipantStore) resolveClaim(ctx context.Context, key string) (domain.Participant, error) {
	id, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("resolve identity claim: %w", err)
	}
	return s.Get(ctx, id)
}

func participantFromHash(fields map[string]string) domain.Participant {
	p := domain.Participant{
		ID:            fields["id"],
		Name:          fields["name"],
		RegisterNo:    fields["register_no"],
		Email:         fields["email"],
		AttemptStatus: domain.AttemptStatus(fields["status"]),
	}
	if raw, ok := fields["quiz_start"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			p.QuizStartTime = &t
		}
	}
	if raw, ok := fields["created_at"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			p.CreatedAt = t
		}
	}
	return p
}

const inProgressKey = "participants:in_progress"

func participantKey(id string) string {
	return "participant:" + id
}

func registerKey(registerNo string) string {
	return "participant:reg:" + registerNo
}

func emailKey(email string) string {
	return "participant:email:" + email
}
