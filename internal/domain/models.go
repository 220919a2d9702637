package domain

import "time"

// AttemptStatus tracks where a participant is in the attempt lifecycle.
// Transitions are forward-only: not_attempted -> in_progress -> completed.
type AttemptStatus string

const (
	StatusNotAttempted AttemptStatus = "not_attempted"
	StatusInProgress   AttemptStatus = "in_progress"
	StatusCompleted    AttemptStatus = "completed"
)

// QuizSettings is the single administrative record governing the quiz window.
// The engine reads it fresh on every time-sensitive decision and never writes it.
type QuizSettings struct {
	DurationMinutes int        `json:"durationMinutes"`
	IsActive        bool       `json:"isActive"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	MaxViolations   int        `json:"maxViolations"`
}

// Identity is the login form a participant presents on first contact.
type Identity struct {
	Name       string `json:"name"`
	RegisterNo string `json:"registerNo"`
	Email      string `json:"email"`
}

// Participant is one quiz taker. RegisterNo/Email act as the natural dedup key.
type Participant struct {
	ID            string
	Name          string
	RegisterNo    string
	Email         string
	AttemptStatus AttemptStatus
	QuizStartTime *time.Time
	CreatedAt     time.Time
}

// AttemptTicket is handed back on login: the participant identity plus the
// server-authoritative start time the countdown is derived from.
type AttemptTicket struct {
	ParticipantID string    `json:"participantId"`
	StartTime     time.Time `json:"startTime"`
}

// Question is a single-choice A-D question. CorrectAnswer must never leave
// the trusted scoring path.
type Question struct {
	ID            string
	Text          string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer string
	Marks         int
	IsActive      bool
}

// QuestionView is the answer-key-free shape served to participants.
type QuestionView struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	OptionA string `json:"optionA"`
	OptionB string `json:"optionB"`
	OptionC string `json:"optionC"`
	OptionD string `json:"optionD"`
	Marks   int    `json:"marks"`
}

// AnswerKey is the trusted per-question grading record.
type AnswerKey struct {
	QuestionID    string
	CorrectAnswer string
	Marks         int
}

// View strips the answer key for untrusted callers.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
		Marks:   q.Marks,
	}
}

// Key extracts the grading record.
func (q Question) Key() AnswerKey {
	return AnswerKey{QuestionID: q.ID, CorrectAnswer: q.CorrectAnswer, Marks: q.Marks}
}

// Submission is the scored, immutable outcome of one attempt. Answers is an
// audit snapshot of exactly what the participant sent.
type Submission struct {
	ParticipantID string            `json:"participantId"`
	Score         int               `json:"score"`
	TotalMarks    int               `json:"totalMarks"`
	TimeTaken     int               `json:"timeTaken"`
	AutoSubmitted bool              `json:"autoSubmitted"`
	Answers       map[string]string `json:"answers"`
	SubmittedAt   time.Time         `json:"submittedAt"`
}

// SubmissionReceipt is what the submit call returns to the client.
type SubmissionReceipt struct {
	Score      int `json:"score"`
	TotalMarks int `json:"totalMarks"`
}

// ViolationRecord accumulates integrity violations for one participant.
// DeviceInfo is captured on the first violation only.
type ViolationRecord struct {
	ParticipantID string
	Count         int
	LastType      string
	DeviceInfo    string
	LastSeen      time.Time
}

// ViolationStatus reports the counter after a violation, with the threshold
// read fresh from settings at call time.
type ViolationStatus struct {
	Count      int  `json:"count"`
	Max        int  `json:"max"`
	AutoSubmit bool `json:"autoSubmit"`
}

// Result is the participant-facing view of a finalized attempt.
type Result struct {
	Score      int     `json:"score"`
	TotalMarks int     `json:"totalMarks"`
	Rank       int     `json:"rank"`
	Violations int     `json:"violations"`
	Percentage float64 `json:"percentage"`
}

// LeaderboardRow joins a submission with its participant for display ordering.
type LeaderboardRow struct {
	ParticipantID string    `json:"participantId"`
	Name          string    `json:"name"`
	RegisterNo    string    `json:"registerNo"`
	Score         int       `json:"score"`
	TotalMarks    int       `json:"totalMarks"`
	TimeTaken     int       `json:"timeTaken"`
	AutoSubmitted bool      `json:"autoSubmitted"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
