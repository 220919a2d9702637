package app

import (
	"strings"

	"quiz-proctor-service/internal/domain"
)

// gradeAnswers scores submitted choices against the active answer keys.
// Comparison is case-insensitive; unanswered questions and stale question IDs
// earn nothing and raise no error. Deterministic for a fixed key set and
// answer snapshot.
func gradeAnswers(keys []domain.AnswerKey, answers map[string]string) (score, totalMarks int) {
	for _, key := range keys {
		marks := key.Marks
		if marks <= 0 {
			marks = 1
		}
		totalMarks += marks
		choice, ok := answers[key.QuestionID]
		if !ok {
			continue
		}
		if key.CorrectAnswer != "" && strings.EqualFold(strings.TrimSpace(choice), key.CorrectAnswer) {
			score += marks
		}
	}
	return score, totalMarks
}

// snapshotAnswers copies the submitted map so the stored audit record cannot
// alias caller memory. A nil map snapshots to an empty one.
func snapshotAnswers(answers map[string]string) map[string]string {
	snapshot := make(map[string]string, len(answers))
	for id, choice := range answers {
		snapshot[id] = choice
	}
	return snapshot
}
