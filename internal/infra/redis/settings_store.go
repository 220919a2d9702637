package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-proctor-service/internal/domain"
)

const settingsKey = "quiz:settings"

// SettingsStore keeps the settings singleton as a JSON value. Current reads
// fresh every call so administrative writes take effect on the next request.
type SettingsStore struct {
	client *redis.Client
}

func NewSettingsStore(client *redis.Client) *SettingsStore {
	return &SettingsStore{client: client}
}

func (s *SettingsStore) Current(ctx context.Context) (domain.QuizSettings, error) {
	raw, err := s.client.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		return s.seedDefaults(ctx)
	}
	if err != nil {
		return domain.QuizSettings{}, fmt.Errorf("load settings: %w", err)
	}
	var settings domain.QuizSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.QuizSettings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) Update(ctx context.Context, settings domain.QuizSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// seedDefaults writes the initial inactive singleton, losing gracefully if a
// concurrent seeder got there first.
func (s *SettingsStore) seedDefaults(ctx context.Context) (domain.QuizSettings, error) {
	defaults := domain.QuizSettings{DurationMinutes: 30, IsActive: false, MaxViolations: 3}
	data, err := json.Marshal(defaults)
	if err != nil {
		return domain.QuizSettings{}, fmt.Errorf("marshal default settings: %w", err)
	}
	stored, err := s.client.SetNX(ctx, settingsKey, data, 0).Result()
	if err != nil {
		return domain.QuizSettings{}, fmt.Errorf("seed settings: %w", err)
	}
	if stored {
		return defaults, nil
	}
	return s.Current(ctx)
}
