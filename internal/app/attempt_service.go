package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-proctor-service/internal/domain"
)

const (
	defaultViolationType = "tab_switch"
	maxDeviceInfoLen     = 500
	defaultBoardLimit    = 50
)

// AttemptService contains the quiz attempt use cases: the lifecycle state
// machine, the server-authoritative time window, the violation tracker, the
// at-most-once scoring transaction and the ranking reads.
type AttemptService struct {
	participants ParticipantStore
	violations   ViolationStore
	submissions  SubmissionStore
	questions    QuestionStore
	settings     SettingsStore
	now          func() time.Time
}

func NewAttemptService(stores Stores) *AttemptService {
	return NewAttemptServiceWithClock(stores, time.Now)
}

// NewAttemptServiceWithClock injects the clock for deterministic tests.
func NewAttemptServiceWithClock(stores Stores, now func() time.Time) *AttemptService {
	return &AttemptService{
		participants: stores.Participants,
		violations:   stores.Violations,
		submissions:  stores.Submissions,
		questions:    stores.Questions,
		settings:     stores.Settings,
		now:          now,
	}
}

// BeginAttempt looks up or creates the participant for the given identity and
// moves them to in_progress. Re-entering an in-progress attempt does not reset
// the stored start time; a completed participant is refused.
func (s *AttemptService) BeginAttempt(ctx context.Context, identity domain.Identity) (domain.AttemptTicket, error) {
	name := strings.TrimSpace(identity.Name)
	registerNo := strings.TrimSpace(identity.RegisterNo)
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if name == "" || registerNo == "" || email == "" {
		return domain.AttemptTicket{}, fmt.Errorf("%w: name, register number and email are required", domain.ErrValidation)
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return domain.AttemptTicket{}, err
	}
	now := s.now()
	if !quizOpen(settings, now) {
		return domain.AttemptTicket{}, domain.ErrQuizNotOpen
	}

	participant, found, err := s.participants.FindByIdentity(ctx, registerNo, email)
	if err != nil {
		return domain.AttemptTicket{}, err
	}
	if !found {
		participant, err = s.participants.Create(ctx, domain.Participant{
			Name:          name,
			RegisterNo:    registerNo,
			Email:         email,
			AttemptStatus: domain.StatusNotAttempted,
			CreatedAt:     now,
		})
		if err != nil {
			return domain.AttemptTicket{}, err
		}
	}
	if participant.AttemptStatus == domain.StatusCompleted {
		return domain.AttemptTicket{}, domain.ErrAlreadyCompleted
	}

	participant, err = s.participants.StartAttempt(ctx, participant.ID, now)
	if err != nil {
		return domain.AttemptTicket{}, err
	}
	startTime := now
	if participant.QuizStartTime != nil {
		startTime = *participant.QuizStartTime
	}
	return domain.AttemptTicket{ParticipantID: participant.ID, StartTime: startTime}, nil
}

// RemainingTime reports the advisory countdown derived from the stored start
// time and fresh settings. A participant who has not started gets the full window.
func (s *AttemptService) RemainingTime(ctx context.Context, participantID string) (int, error) {
	participant, err := s.participants.Get(ctx, participantID)
	if err != nil {
		return 0, err
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return 0, err
	}
	if participant.QuizStartTime == nil {
		return settings.DurationMinutes * 60, nil
	}
	return remainingSeconds(settings, *participant.QuizStartTime, s.now()), nil
}

// RecordViolation bumps the participant's violation counter and reports
// whether the client must now submit. MaxViolations is read fresh so an admin
// lowering the threshold mid-quiz takes effect on the next report.
func (s *AttemptService) RecordViolation(ctx context.Context, participantID, violationType, deviceInfo string) (domain.ViolationStatus, error) {
	if _, err := s.participants.Get(ctx, participantID); err != nil {
		return domain.ViolationStatus{}, err
	}
	if violationType == "" {
		violationType = defaultViolationType
	}
	if len(deviceInfo) > maxDeviceInfoLen {
		deviceInfo = deviceInfo[:maxDeviceInfoLen]
	}

	count, err := s.violations.Increment(ctx, participantID, violationType, deviceInfo, s.now())
	if err != nil {
		return domain.ViolationStatus{}, err
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return domain.ViolationStatus{}, err
	}
	return domain.ViolationStatus{
		Count:      count,
		Max:        settings.MaxViolations,
		AutoSubmit: count >= settings.MaxViolations,
	}, nil
}

// SubmitAttempt finalizes an attempt: the terminal status transition is taken
// first so that concurrent duplicates fail fast before any scoring work, then
// the answers are graded against the question set active right now and the
// submission is persisted exactly once.
//
// timeTaken and autoSubmit are untrusted client hints; the stored start time
// alone decides whether the grace window was exceeded.
func (s *AttemptService) SubmitAttempt(ctx context.Context, participantID string, answers map[string]string, timeTaken int, autoSubmit bool) (domain.SubmissionReceipt, error) {
	participant, err := s.participants.Get(ctx, participantID)
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}
	if err := s.participants.CompleteAttempt(ctx, participantID); err != nil {
		return domain.SubmissionReceipt{}, err
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}
	now := s.now()
	if participant.QuizStartTime != nil {
		if now.Sub(*participant.QuizStartTime) > quizDuration(settings)+gracePeriod {
			autoSubmit = true
		}
	}

	keys, err := s.questions.ListActiveWithAnswers(ctx)
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}
	score, totalMarks := gradeAnswers(keys, answers)

	sub := domain.Submission{
		ParticipantID: participantID,
		Score:         score,
		TotalMarks:    totalMarks,
		TimeTaken:     timeTaken,
		AutoSubmitted: autoSubmit,
		Answers:       snapshotAnswers(answers),
		SubmittedAt:   now,
	}
	if err := s.submissions.Save(ctx, sub); err != nil {
		return domain.SubmissionReceipt{}, err
	}
	return domain.SubmissionReceipt{Score: score, TotalMarks: totalMarks}, nil
}

// Result assembles the participant-facing outcome: score, rank across all
// submissions, violation count and percentage.
func (s *AttemptService) Result(ctx context.Context, participantID string) (domain.Result, error) {
	sub, err := s.submissions.Get(ctx, participantID)
	if err != nil {
		return domain.Result{}, err
	}
	all, err := s.submissions.List(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	record, err := s.violations.Get(ctx, participantID)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{
		Score:      sub.Score,
		TotalMarks: sub.TotalMarks,
		Rank:       rankOf(sub.Score, all),
		Violations: record.Count,
		Percentage: percentage(sub.Score, sub.TotalMarks),
	}, nil
}

// ActiveQuestions serves the answer-free question set to a participant while
// the quiz is open.
func (s *AttemptService) ActiveQuestions(ctx context.Context) ([]domain.QuestionView, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !quizOpen(settings, s.now()) {
		return nil, domain.ErrQuizNotOpen
	}
	return s.questions.ListActive(ctx)
}

// Leaderboard returns at most limit rows ordered for display. The read is a
// point-in-time aggregate, not a transaction; rank remains advisory.
func (s *AttemptService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 {
		limit = defaultBoardLimit
	}
	subs, err := s.submissions.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.LeaderboardRow, 0, len(subs))
	for _, sub := range subs {
		row := domain.LeaderboardRow{
			ParticipantID: sub.ParticipantID,
			Name:          "Unknown",
			RegisterNo:    "-",
			Score:         sub.Score,
			TotalMarks:    sub.TotalMarks,
			TimeTaken:     sub.TimeTaken,
			AutoSubmitted: sub.AutoSubmitted,
			SubmittedAt:   sub.SubmittedAt,
		}
		participant, err := s.participants.Get(ctx, sub.ParticipantID)
		if err == nil {
			row.Name = participant.Name
			row.RegisterNo = participant.RegisterNo
		} else if !errors.Is(err, domain.ErrParticipantNotFound) {
			return nil, err
		}
		rows = append(rows, row)
	}
	sortLeaderboard(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// SweepExpired finalizes in-progress attempts whose server-side elapsed time
// has outrun duration plus grace, recording a zero-answer auto submission.
// It routes through SubmitAttempt so a concurrent real submit still wins the
// terminal transition exactly once.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return 0, err
	}
	stale, err := s.participants.ListInProgress(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	deadline := quizDuration(settings) + gracePeriod
	swept := 0
	for _, participant := range stale {
		if participant.QuizStartTime == nil {
			continue
		}
		if now.Sub(*participant.QuizStartTime) <= deadline {
			continue
		}
		_, err := s.SubmitAttempt(ctx, participant.ID, nil, settings.DurationMinutes*60, true)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadySubmitted) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}
