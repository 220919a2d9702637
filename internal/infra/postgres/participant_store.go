package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-proctor-service/internal/domain"
)

// ParticipantStore persists participants in Postgres. The lifecycle
// transitions are conditional UPDATEs; RowsAffected tells us whether the
// compare-and-swap won, so there is no read-then-write window.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

const participantColumns = `id, name, register_no, email, attempt_status, quiz_start_time, created_at`

func (s *ParticipantStore) FindByIdentity(ctx context.Context, registerNo, email string) (domain.Participant, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants
		 WHERE register_no=$1 OR email=$2
		 ORDER BY created_at LIMIT 1`, registerNo, email)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("find participant: %w", err)
	}
	return p, true, nil
}

func (s *ParticipantStore) Create(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO participants (name, register_no, email, attempt_status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (register_no) DO NOTHING
		 RETURNING `+participantColumns,
		p.Name, p.RegisterNo, p.Email, string(domain.StatusNotAttempted), p.CreatedAt)
	created, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the creation race; the unique index kept one record, use it.
		existing, found, err := s.FindByIdentity(ctx, p.RegisterNo, p.Email)
		if err != nil {
			return domain.Participant{}, err
		}
		if !found {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return existing, nil
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	return created, nil
}

func (s *ParticipantStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id=$1`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("load participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) StartAttempt(ctx context.Context, id string, startedAt time.Time) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE participants
		 SET attempt_status=$2, quiz_start_time=COALESCE(quiz_start_time, $3)
		 WHERE id=$1 AND attempt_status <> $4
		 RETURNING `+participantColumns,
		id, string(domain.StatusInProgress), startedAt, string(domain.StatusCompleted))
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		// Distinguish a finished attempt from a missing participant.
		existing, getErr := s.Get(ctx, id)
		if getErr != nil {
			return domain.Participant{}, getErr
		}
		if existing.AttemptStatus == domain.StatusCompleted {
			return domain.Participant{}, domain.ErrAlreadyCompleted
		}
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("start attempt: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) CompleteAttempt(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET attempt_status=$2
		 WHERE id=$1 AND attempt_status=$3`,
		id, string(domain.StatusCompleted), string(domain.StatusInProgress))
	if isInvalidUUID(err) {
		return domain.ErrParticipantNotFound
	}
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch existing.AttemptStatus {
	case domain.StatusCompleted:
		return domain.ErrAlreadySubmitted
	default:
		return domain.ErrAttemptNotStarted
	}
}

func (s *ParticipantStore) ListInProgress(ctx context.Context) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM participants
		 WHERE attempt_status=$1 ORDER BY created_at`, string(domain.StatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("list in-progress: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.RegisterNo, &p.Email, &status, &p.QuizStartTime, &p.CreatedAt); err != nil {
		return domain.Participant{}, err
	}
	p.AttemptStatus = domain.AttemptStatus(status)
	return p, nil
}

// isInvalidUUID spots malformed participant IDs passed into a uuid column, so
// a garbage session reference reads as not-found rather than a server fault.
func isInvalidUUID(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "invalid input syntax for type uuid")
}
