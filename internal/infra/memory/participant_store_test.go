package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-proctor-service/internal/domain"
)

func TestParticipantLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()

	created, err := store.Create(ctx, domain.Participant{Name: "Alice", RegisterNo: "R-001", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.AttemptStatus != domain.StatusNotAttempted {
		t.Fatalf("unexpected created participant: %+v", created)
	}

	found, ok, err := store.FindByIdentity(ctx, "R-001", "other@example.com")
	if err != nil || !ok || found.ID != created.ID {
		t.Fatalf("find by register no failed: %+v ok=%v err=%v", found, ok, err)
	}
	if _, ok, _ := store.FindByIdentity(ctx, "R-999", "nobody@example.com"); ok {
		t.Fatalf("expected no match")
	}

	start := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)
	started, err := store.StartAttempt(ctx, created.ID, start)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.AttemptStatus != domain.StatusInProgress || started.QuizStartTime == nil || !started.QuizStartTime.Equal(start) {
		t.Fatalf("unexpected started participant: %+v", started)
	}

	// Restarting keeps the original stamp.
	restarted, err := store.StartAttempt(ctx, created.ID, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !restarted.QuizStartTime.Equal(start) {
		t.Fatalf("restart reset quiz start time")
	}

	if err := store.CompleteAttempt(ctx, created.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.CompleteAttempt(ctx, created.ID); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already-submitted, got %v", err)
	}
	if _, err := store.StartAttempt(ctx, created.ID, start); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected already-completed, got %v", err)
	}
}

func TestCompleteAttemptRequiresStart(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()

	created, _ := store.Create(ctx, domain.Participant{Name: "Alice", RegisterNo: "R-001", Email: "a@example.com"})
	if err := store.CompleteAttempt(ctx, created.ID); !errors.Is(err, domain.ErrAttemptNotStarted) {
		t.Fatalf("expected attempt-not-started, got %v", err)
	}
	if err := store.CompleteAttempt(ctx, "missing"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant-not-found, got %v", err)
	}
}

func TestCreateDedupesConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()

	const attempts = 8
	ids := make(chan string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Create(ctx, domain.Participant{Name: "Alice", RegisterNo: "R-001", Email: "alice@example.com"})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- p.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Fatalf("expected one participant record, got %d distinct ids", len(seen))
	}
}

func TestListInProgress(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	start := time.Now()

	a, _ := store.Create(ctx, domain.Participant{Name: "A", RegisterNo: "R-1", Email: "a@x.com"})
	b, _ := store.Create(ctx, domain.Participant{Name: "B", RegisterNo: "R-2", Email: "b@x.com"})
	if _, err := store.StartAttempt(ctx, a.ID, start); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if _, err := store.StartAttempt(ctx, b.ID, start); err != nil {
		t.Fatalf("start b: %v", err)
	}
	if err := store.CompleteAttempt(ctx, b.ID); err != nil {
		t.Fatalf("complete b: %v", err)
	}

	inProgress, err := store.ListInProgress(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inProgress) != 1 || inProgress[0].ID != a.ID {
		t.Fatalf("unexpected in-progress set: %+v", inProgress)
	}
}
