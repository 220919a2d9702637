package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-proctor-service/internal/domain"
)

// SettingsStore reads the settings singleton row (seeded by the migration).
// Every call hits the database so administrative writes apply immediately.
type SettingsStore struct {
	pool *pgxpool.Pool
}

func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

func (s *SettingsStore) Current(ctx context.Context) (domain.QuizSettings, error) {
	var settings domain.QuizSettings
	err := s.pool.QueryRow(ctx,
		`SELECT duration_minutes, is_active, start_time, end_time, max_violations
		 FROM quiz_settings WHERE id=1`).
		Scan(&settings.DurationMinutes, &settings.IsActive, &settings.StartTime, &settings.EndTime, &settings.MaxViolations)
	if errors.Is(err, pgx.ErrNoRows) {
		// Migration seeds the row; fall back to the same inactive defaults if
		// someone dropped it.
		return domain.QuizSettings{DurationMinutes: 30, IsActive: false, MaxViolations: 3}, nil
	}
	if err != nil {
		return domain.QuizSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) Update(ctx context.Context, settings domain.QuizSettings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_settings (id, duration_minutes, is_active, start_time, end_time, max_violations)
		 VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   duration_minutes = EXCLUDED.duration_minutes,
		   is_active = EXCLUDED.is_active,
		   start_time = EXCLUDED.start_time,
		   end_time = EXCLUDED.end_time,
		   max_violations = EXCLUDED.max_violations`,
		settings.DurationMinutes, settings.IsActive, settings.StartTime, settings.EndTime, settings.MaxViolations)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}
