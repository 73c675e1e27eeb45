package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warnbot/internal/domain"

	"github.com/redis/go-redis/v9"
)

// wizardTTL bounds how long an abandoned wizard survives.
const wizardTTL = time.Hour

// SessionRepository keeps the short-lived state in Redis: in-progress wizard
// contexts and per-category fetch cooldowns. Everything here expires on its
// own; losing it costs the user at most a restarted wizard.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func wizardKey(chatID int64) string {
	return fmt.Sprintf("wizard:%d", chatID)
}

// SaveWizard stores the wizard context for a chat, replacing any previous one.
func (r *SessionRepository) SaveWizard(ctx context.Context, chatID int64, w *domain.WizardContext) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard context: %w", err)
	}
	if err := r.client.Set(ctx, wizardKey(chatID), data, wizardTTL).Err(); err != nil {
		return fmt.Errorf("failed to save wizard context to redis: %w", err)
	}
	return nil
}

// GetWizard returns the chat's wizard context, or nil when none is in
// progress (or it expired).
func (r *SessionRepository) GetWizard(ctx context.Context, chatID int64) (*domain.WizardContext, error) {
	data, err := r.client.Get(ctx, wizardKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wizard context from redis: %w", err)
	}

	var w domain.WizardContext
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard context: %w", err)
	}
	return &w, nil
}

func (r *SessionRepository) DeleteWizard(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, wizardKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard context from redis: %w", err)
	}
	return nil
}

// StartCooldown sets a cooldown key with TTL if none is active yet. Returns
// true when the cooldown was started by this call.
func (r *SessionRepository) StartCooldown(ctx context.Context, category domain.WarningCategory, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("cooldown:%s", category)
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to start cooldown: %w", err)
	}
	return ok, nil
}

// InCooldown reports whether a category is currently cooling down after
// repeated fetch failures.
func (r *SessionRepository) InCooldown(ctx context.Context, category domain.WarningCategory) (bool, error) {
	key := fmt.Sprintf("cooldown:%s", category)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown: %w", err)
	}
	return n > 0, nil
}

// Ping verifies the Redis connection.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
