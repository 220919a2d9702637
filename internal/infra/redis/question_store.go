package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-proctor-service/internal/domain"
)

// QuestionLoader fetches the question bank from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

const questionViewKey = "questions:active:view"

// QuestionStore caches the answer-free question view in Redis and falls back
// to the loader on cache miss. Only the stripped view is ever cached; answer
// keys are read through to the loader so scoring always sees the live active
// set and the key material never sits in the cache.
type QuestionStore struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionStore(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionStore {
	return &QuestionStore{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionStore) ListActive(ctx context.Context) ([]domain.QuestionView, error) {
	if views, ok := s.cachedViews(ctx); ok {
		return views, nil
	}

	result, err, _ := s.sf.Do(questionViewKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if views, ok := s.cachedViews(ctx); ok {
			return views, nil
		}

		questions, err := s.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]domain.QuestionView, 0, len(questions))
		for _, q := range questions {
			if !q.IsActive {
				continue
			}
			views = append(views, q.View())
		}

		if data, err := json.Marshal(views); err == nil {
			_ = s.client.Set(ctx, questionViewKey, data, s.ttlWithJitter()).Err()
		}
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionView), nil
}

func (s *QuestionStore) ListActiveWithAnswers(ctx context.Context) ([]domain.AnswerKey, error) {
	questions, err := s.loader.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load answer keys: %w", err)
	}
	keys := make([]domain.AnswerKey, 0, len(questions))
	for _, q := range questions {
		if !q.IsActive {
			continue
		}
		keys = append(keys, q.Key())
	}
	return keys, nil
}

func (s *QuestionStore) cachedViews(ctx context.Context) ([]domain.QuestionView, bool) {
	raw, err := s.client.Get(ctx, questionViewKey).Bytes()
	if err != nil {
		return nil, false
	}
	var views []domain.QuestionView
	if err := json.Unmarshal(raw, &views); err != nil {
		return nil, false
	}
	return views, true
}

func (s *QuestionStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
