package app

import (
	"context"
	"time"

	"quiz-proctor-service/internal/domain"
)

// ParticipantStore abstracts participant persistence (in-memory, Redis, Postgres).
// StartAttempt and CompleteAttempt must be atomic conditional transitions;
// a read-then-write implementation is a race and violates the contract.
type ParticipantStore interface {
	// FindByIdentity looks up a participant by register number or email, first match wins.
	FindByIdentity(ctx context.Context, registerNo, email string) (domain.Participant, bool, error)
	// Create inserts a new participant. On an identity collision the existing
	// record is returned instead of a duplicate.
	Create(ctx context.Context, p domain.Participant) (domain.Participant, error)
	Get(ctx context.Context, id string) (domain.Participant, error)
	// StartAttempt moves the participant to in_progress, stamping the start
	// time only if it is not already set. Fails with ErrAlreadyCompleted on a
	// finished attempt.
	StartAttempt(ctx context.Context, id string, startedAt time.Time) (domain.Participant, error)
	// CompleteAttempt performs the in_progress -> completed transition and
	// succeeds at most once per participant (ErrAlreadySubmitted afterwards).
	CompleteAttempt(ctx context.Context, id string) error
	ListInProgress(ctx context.Context) ([]domain.Participant, error)
}

// ViolationStore persists per-participant violation counters.
type ViolationStore interface {
	// Increment atomically bumps the counter (creating it at 1) and returns the
	// new count. Concurrent calls for the same participant must not lose updates.
	Increment(ctx context.Context, participantID, violationType, deviceInfo string, at time.Time) (int, error)
	// Get returns the record, or a zero-count record when none exists.
	Get(ctx context.Context, participantID string) (domain.ViolationRecord, error)
}

// SubmissionStore persists finalized submissions. Save is first-write-wins.
type SubmissionStore interface {
	Save(ctx context.Context, sub domain.Submission) error
	Get(ctx context.Context, participantID string) (domain.Submission, error)
	List(ctx context.Context) ([]domain.Submission, error)
}

// QuestionStore serves the active question set in two shapes: the answer-free
// view for participants and the trusted answer keys for scoring only.
type QuestionStore interface {
	ListActive(ctx context.Context) ([]domain.QuestionView, error)
	ListActiveWithAnswers(ctx context.Context) ([]domain.AnswerKey, error)
}

// SettingsStore exposes the quiz settings singleton. Current must reflect
// administrative writes on the next call; callers never cache past request scope.
type SettingsStore interface {
	Current(ctx context.Context) (domain.QuizSettings, error)
	Update(ctx context.Context, s domain.QuizSettings) error
}

// Stores bundles the persistence collaborators the attempt service needs.
type Stores struct {
	Participants ParticipantStore
	Violations   ViolationStore
	Submissions  SubmissionStore
	Questions    QuestionStore
	Settings     SettingsStore
}
