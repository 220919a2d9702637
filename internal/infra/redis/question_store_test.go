package redis

import (
	"context"
	"testing"
	"time"

	"quiz-proctor-service/internal/domain"
)

type countingLoader struct {
	calls     int
	questions []domain.Question
}

func (l *countingLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	l.calls++
	return l.questions, nil
}

func testQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", CorrectAnswer: "B", Marks: 1, IsActive: true},
		{ID: "q2", Text: "Retired", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectAnswer: "A", Marks: 1, IsActive: false},
	}
}

func TestQuestionViewCachedInRedis(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: testQuestions()}
	store := NewQuestionStore(newTestClient(t), loader, time.Minute)

	views, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].ID != "q1" {
		t.Fatalf("expected only the active question, got %+v", views)
	}
	if _, err := store.ListActive(ctx); err != nil {
		t.Fatalf("list 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit on second read, loader calls=%d", loader.calls)
	}
}

func TestAnswerKeysBypassCache(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: testQuestions()}
	store := NewQuestionStore(newTestClient(t), loader, time.Minute)

	if _, err := store.ListActive(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	// Deactivate q1 in the backing store; the cached view still shows it but
	// scoring must not.
	loader.questions[0].IsActive = false
	keys, err := store.ListActiveWithAnswers(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no active answer keys, got %+v", keys)
	}
}
