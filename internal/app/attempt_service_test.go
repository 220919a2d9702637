package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-proctor-service/internal/app"
	"quiz-proctor-service/internal/domain"
	"quiz-proctor-service/internal/infra/memory"
)

type testEnv struct {
	service     *app.AttemptService
	settings    *memory.SettingsStore
	submissions *memory.SubmissionStore
	clock       *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T, settings domain.QuizSettings) *testEnv {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)}
	settingsStore := memory.NewSettingsStore(settings)
	submissionStore := memory.NewSubmissionStore()
	stores := app.Stores{
		Participants: memory.NewParticipantStore(),
		Violations:   memory.NewViolationStore(),
		Submissions:  submissionStore,
		Questions: memory.NewQuestionStore(memory.NewStaticQuestionLoader([]domain.Question{
			{ID: "q1", Text: "First", OptionA: "x", OptionB: "y", OptionC: "z", OptionD: "w", CorrectAnswer: "A", Marks: 1, IsActive: true},
			{ID: "q2", Text: "Second", OptionA: "x", OptionB: "y", OptionC: "z", OptionD: "w", CorrectAnswer: "B", Marks: 1, IsActive: true},
		}), time.Minute),
		Settings: settingsStore,
	}
	return &testEnv{
		service:     app.NewAttemptServiceWithClock(stores, clock.Now),
		settings:    settingsStore,
		submissions: submissionStore,
		clock:       clock,
	}
}

func defaultSettings() domain.QuizSettings {
	return domain.QuizSettings{DurationMinutes: 30, IsActive: true, MaxViolations: 3}
}

func alice() domain.Identity {
	return domain.Identity{Name: "Alice", RegisterNo: "R-001", Email: "alice@example.com"}
}

func TestBeginAttemptStampsStartOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin attempt: %v", err)
	}
	if ticket.ParticipantID == "" {
		t.Fatalf("expected participant id")
	}
	if !ticket.StartTime.Equal(env.clock.Now()) {
		t.Fatalf("expected start time %v, got %v", env.clock.Now(), ticket.StartTime)
	}

	// Re-entering an in-progress attempt must not reset the clock.
	env.clock.Advance(5 * time.Minute)
	again, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("resume attempt: %v", err)
	}
	if again.ParticipantID != ticket.ParticipantID {
		t.Fatalf("resume created a new participant")
	}
	if !again.StartTime.Equal(ticket.StartTime) {
		t.Fatalf("resume reset start time: %v != %v", again.StartTime, ticket.StartTime)
	}
}

func TestBeginAttemptValidation(t *testing.T) {
	env := newTestEnv(t, defaultSettings())
	_, err := env.service.BeginAttempt(context.Background(), domain.Identity{Name: "Alice"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBeginAttemptWhenClosed(t *testing.T) {
	settings := defaultSettings()
	settings.IsActive = false
	env := newTestEnv(t, settings)

	_, err := env.service.BeginAttempt(context.Background(), alice())
	if !errors.Is(err, domain.ErrQuizNotOpen) {
		t.Fatalf("expected quiz-not-open, got %v", err)
	}
}

func TestBeginAttemptAfterCompletionRefused(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, nil, 10, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = env.service.BeginAttempt(ctx, alice())
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected already-completed, got %v", err)
	}
}

func TestSubmitScoresServerSide(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	receipt, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, map[string]string{"q1": "A", "q2": "C"}, 100, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Score != 1 || receipt.TotalMarks != 2 {
		t.Fatalf("expected 1/2, got %d/%d", receipt.Score, receipt.TotalMarks)
	}

	stored, err := env.submissions.Get(ctx, ticket.ParticipantID)
	if err != nil {
		t.Fatalf("load submission: %v", err)
	}
	if stored.Score != 1 || stored.TotalMarks != 2 || stored.TimeTaken != 100 || stored.AutoSubmitted {
		t.Fatalf("unexpected stored submission: %+v", stored)
	}
	if stored.Answers["q1"] != "A" || stored.Answers["q2"] != "C" {
		t.Fatalf("answers snapshot missing: %+v", stored.Answers)
	}
}

func TestDuplicateSubmitKeepsFirstScore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, map[string]string{"q1": "A"}, 50, false); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = env.service.SubmitAttempt(ctx, ticket.ParticipantID, map[string]string{"q1": "A", "q2": "B"}, 60, false)
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already-submitted, got %v", err)
	}

	stored, err := env.submissions.Get(ctx, ticket.ParticipantID)
	if err != nil {
		t.Fatalf("load submission: %v", err)
	}
	if stored.Score != 1 || stored.TimeTaken != 50 {
		t.Fatalf("second submit mutated the stored record: %+v", stored)
	}
}

func TestConcurrentSubmitsCreateOneSubmission(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, map[string]string{"q1": "A"}, 10, false)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrAlreadySubmitted):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one winner, got %d winners / %d rejected", succeeded, rejected)
	}

	subs, err := env.submissions.List(ctx)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected exactly one submission record, got %d", len(subs))
	}
}

func TestViolationThreshold(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	for i := 1; i <= 2; i++ {
		status, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "tab_switch", "agent")
		if err != nil {
			t.Fatalf("violation %d: %v", i, err)
		}
		if status.Count != i || status.AutoSubmit {
			t.Fatalf("violation %d: unexpected status %+v", i, status)
		}
	}

	status, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "tab_switch", "agent")
	if err != nil {
		t.Fatalf("third violation: %v", err)
	}
	if status.Count != 3 || status.Max != 3 || !status.AutoSubmit {
		t.Fatalf("expected auto-submit on third violation, got %+v", status)
	}
}

func TestViolationThresholdReadFresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "", ""); err != nil {
		t.Fatalf("violation: %v", err)
	}

	// Admin lowers the threshold mid-quiz; the very next report applies it.
	lowered := defaultSettings()
	lowered.MaxViolations = 2
	if err := env.settings.Update(ctx, lowered); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	status, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "", "")
	if err != nil {
		t.Fatalf("violation: %v", err)
	}
	if status.Count != 2 || status.Max != 2 || !status.AutoSubmit {
		t.Fatalf("expected lowered threshold to trip, got %+v", status)
	}
}

func TestConcurrentViolationsLoseNoIncrements(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	const reports = 10
	var wg sync.WaitGroup
	for i := 0; i < reports; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "tab_switch", ""); err != nil {
				t.Errorf("violation: %v", err)
			}
		}()
	}
	wg.Wait()

	status, err := env.service.RecordViolation(ctx, ticket.ParticipantID, "tab_switch", "")
	if err != nil {
		t.Fatalf("final violation: %v", err)
	}
	if status.Count != reports+1 {
		t.Fatalf("lost increments: count=%d, want %d", status.Count, reports+1)
	}
}

func TestLateSubmitForcedAutoSubmitted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Past duration plus the 30s grace: accepted, but flagged.
	env.clock.Advance(30*time.Minute + 31*time.Second)
	if _, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, map[string]string{"q1": "A"}, 1800, false); err != nil {
		t.Fatalf("late submit: %v", err)
	}

	stored, err := env.submissions.Get(ctx, ticket.ParticipantID)
	if err != nil {
		t.Fatalf("load submission: %v", err)
	}
	if !stored.AutoSubmitted {
		t.Fatalf("expected late submission to be flagged auto-submitted")
	}
}

func TestSubmitWithinGraceKeepsFlag(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	env.clock.Advance(30*time.Minute + 20*time.Second)
	if _, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, nil, 1800, false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, _ := env.submissions.Get(ctx, ticket.ParticipantID)
	if stored.AutoSubmitted {
		t.Fatalf("submission inside grace window should not be flagged")
	}
}

func TestRemainingTimeAdvisory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	ticket, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	env.clock.Advance(100 * time.Second)
	remaining, err := env.service.RemainingTime(ctx, ticket.ParticipantID)
	if err != nil {
		t.Fatalf("remaining time: %v", err)
	}
	if remaining != 1700 {
		t.Fatalf("remaining=%d, want 1700", remaining)
	}

	env.clock.Advance(time.Hour)
	remaining, err = env.service.RemainingTime(ctx, ticket.ParticipantID)
	if err != nil {
		t.Fatalf("remaining time: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining=%d, want 0", remaining)
	}

	if _, err := env.service.RemainingTime(ctx, "nope"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant-not-found, got %v", err)
	}
}

func TestResultRankAndTies(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	submit := func(identity domain.Identity, answers map[string]string) string {
		t.Helper()
		ticket, err := env.service.BeginAttempt(ctx, identity)
		if err != nil {
			t.Fatalf("begin %s: %v", identity.Name, err)
		}
		if _, err := env.service.SubmitAttempt(ctx, ticket.ParticipantID, answers, 60, false); err != nil {
			t.Fatalf("submit %s: %v", identity.Name, err)
		}
		return ticket.ParticipantID
	}

	full := map[string]string{"q1": "A", "q2": "B"}
	aliceID := submit(alice(), full)
	bobID := submit(domain.Identity{Name: "Bob", RegisterNo: "R-002", Email: "bob@example.com"}, full)
	carolID := submit(domain.Identity{Name: "Carol", RegisterNo: "R-003", Email: "carol@example.com"}, map[string]string{"q1": "A"})

	for _, id := range []string{aliceID, bobID} {
		result, err := env.service.Result(ctx, id)
		if err != nil {
			t.Fatalf("result: %v", err)
		}
		if result.Rank != 1 || result.Score != 2 || result.Percentage != 100 {
			t.Fatalf("expected shared rank 1, got %+v", result)
		}
	}

	result, err := env.service.Result(ctx, carolID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Rank != 3 || result.Score != 1 || result.Percentage != 50 {
		t.Fatalf("expected rank 3 at 50%%, got %+v", result)
	}

	if _, err := env.service.Result(ctx, "nope"); !errors.Is(err, domain.ErrNoSubmission) {
		t.Fatalf("expected no-submission, got %v", err)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	begin := func(identity domain.Identity) string {
		t.Helper()
		ticket, err := env.service.BeginAttempt(ctx, identity)
		if err != nil {
			t.Fatalf("begin %s: %v", identity.Name, err)
		}
		return ticket.ParticipantID
	}

	aliceID := begin(alice())
	bobID := begin(domain.Identity{Name: "Bob", RegisterNo: "R-002", Email: "bob@example.com"})

	if _, err := env.service.SubmitAttempt(ctx, aliceID, map[string]string{"q1": "A", "q2": "B"}, 300, false); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if _, err := env.service.SubmitAttempt(ctx, bobID, map[string]string{"q1": "A", "q2": "B"}, 120, false); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	rows, err := env.service.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Same score: faster time leads.
	if rows[0].Name != "Bob" || rows[1].Name != "Alice" {
		t.Fatalf("unexpected order: %s then %s", rows[0].Name, rows[1].Name)
	}
}

func TestActiveQuestionsRequireOpenQuiz(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	views, err := env.service.ActiveQuestions(ctx)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(views))
	}

	closed := defaultSettings()
	closed.IsActive = false
	if err := env.settings.Update(ctx, closed); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := env.service.ActiveQuestions(ctx); !errors.Is(err, domain.ErrQuizNotOpen) {
		t.Fatalf("expected quiz-not-open, got %v", err)
	}
}

func TestSweepExpiredFinalizesAbandonedAttempts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultSettings())

	abandoned, err := env.service.BeginAttempt(ctx, alice())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	env.clock.Advance(20 * time.Minute)
	fresh, err := env.service.BeginAttempt(ctx, domain.Identity{Name: "Bob", RegisterNo: "R-002", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("begin fresh: %v", err)
	}

	// Alice is now past duration+grace, Bob is not.
	env.clock.Advance(11 * time.Minute)
	swept, err := env.service.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept=%d, want 1", swept)
	}

	stored, err := env.submissions.Get(ctx, abandoned.ParticipantID)
	if err != nil {
		t.Fatalf("load swept submission: %v", err)
	}
	if !stored.AutoSubmitted || stored.Score != 0 || len(stored.Answers) != 0 {
		t.Fatalf("unexpected swept submission: %+v", stored)
	}

	if _, err := env.submissions.Get(ctx, fresh.ParticipantID); !errors.Is(err, domain.ErrNoSubmission) {
		t.Fatalf("fresh attempt should not be swept, got %v", err)
	}

	// A second sweep finds nothing new.
	swept, err = env.service.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("second sweep swept=%d, want 0", swept)
	}
}
