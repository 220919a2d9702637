package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-proctor-service/internal/domain"
)

// QuestionLoader fetches the question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionStore serves active questions from a loader. The answer-free view
// is cached with TTL to spare the backing store; answer keys are always read
// through so scoring sees the live active set (deactivating a question
// mid-quiz must apply to in-flight attempts).
type QuestionStore struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu     sync.RWMutex
	cached cachedViews
}

type cachedViews struct {
	views     []domain.QuestionView
	expiresAt time.Time
}

func NewQuestionStore(loader QuestionLoader, ttl time.Duration) *QuestionStore {
	return &QuestionStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionStore) ListActive(ctx context.Context) ([]domain.QuestionView, error) {
	now := s.clock()

	s.mu.RLock()
	if s.cached.views != nil && s.cached.expiresAt.After(now) {
		views := s.cached.views
		s.mu.RUnlock()
		return views, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("active-views", func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.cached.views != nil && s.cached.expiresAt.After(now) {
			views := s.cached.views
			s.mu.RUnlock()
			return views, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		views := activeViews(questions)

		s.mu.Lock()
		s.cached = cachedViews{views: views, expiresAt: now.Add(s.ttlWithJitter())}
		s.mu.Unlock()
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
		return nil, err
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

func (s *QuestionStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

func activeViews(questions []domain.Question) []domain.QuestionView {
	views := make([]domain.QuestionView, 0, len(questions))
	for _, q := range questions {
		if !q.IsActive {
			continue
		}
		views = append(views, q.View())
	}
	return views
}

// StaticQuestionLoader is a loader backed by a fixed slice (tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}
