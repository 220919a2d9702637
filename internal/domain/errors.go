package domain

import "errors"

var (
	// ErrValidation is returned when identity or answer fields are missing or malformed.
	ErrValidation = errors.New("invalid input")
	// ErrQuizNotOpen is returned when the quiz window is inactive or out of range.
	ErrQuizNotOpen = errors.New("quiz is not open")
	// ErrAlreadyCompleted is returned when a completed participant tries to log in again.
	ErrAlreadyCompleted = errors.New("attempt already completed")
	// ErrAlreadySubmitted is returned when a duplicate submission loses the terminal transition.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrAttemptNotStarted is returned when a submission arrives before the attempt began.
	ErrAttemptNotStarted = errors.New("attempt not started")
	// ErrParticipantNotFound is returned for unknown or stale participant references.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrNoSubmission is returned when a result is requested before submitting.
	ErrNoSubmission = errors.New("no submission yet")
)
