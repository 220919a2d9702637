package app

import (
	"time"

	"quiz-proctor-service/internal/domain"
)

// gracePeriod is the fixed allowance for network latency on the final submit
// call before a late submission is flagged as auto-submitted.
const gracePeriod = 30 * time.Second

// quizOpen reports whether the quiz accepts logins at now. Unset start/end
// bounds leave that side of the window open.
func quizOpen(s domain.QuizSettings, now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.StartTime != nil && now.Before(*s.StartTime) {
		return false
	}
	if s.EndTime != nil && now.After(*s.EndTime) {
		return false
	}
	return true
}

// remainingSeconds computes how long the attempt has left, clamped at zero.
// Advisory only: enforcement happens at submit time against the stored start.
func remainingSeconds(s domain.QuizSettings, start, now time.Time) int {
	total := s.DurationMinutes * 60
	elapsed := int(now.Sub(start).Seconds())
	if remaining := total - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// quizDuration is the nominal attempt length from settings.
func quizDuration(s domain.QuizSettings) time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
