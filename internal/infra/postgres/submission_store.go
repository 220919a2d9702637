package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-proctor-service/internal/domain"
)

// SubmissionStore writes one row per participant; the primary key on
// participant_id makes a duplicate save fail rather than overwrite.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Save(ctx context.Context, sub domain.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (participant_id, score, total_marks, time_taken, auto_submitted, answers, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (participant_id) DO NOTHING`,
		sub.ParticipantID, sub.Score, sub.TotalMarks, sub.TimeTaken, sub.AutoSubmitted, answers, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("store submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySubmitted
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, participantID string) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT participant_id, score, total_marks, time_taken, auto_submitted, answers, submitted_at
		 FROM submissions WHERE participant_id=$1`, participantID)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.Submission{}, domain.ErrNoSubmission
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionStore) List(ctx context.Context) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT participant_id, score, total_marks, time_taken, auto_submitted, answers, submitted_at
		 FROM submissions ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var sub domain.Submission
	var answers []byte
	if err := row.Scan(&sub.ParticipantID, &sub.Score, &sub.TotalMarks, &sub.TimeTaken, &sub.AutoSubmitted, &answers, &sub.SubmittedAt); err != nil {
		return domain.Submission{}, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &sub.Answers); err != nil {
			return domain.Submission{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if sub.Answers == nil {
		sub.Answers = map[string]string{}
	}
	return sub, nil
}
