package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"warnbot/internal/domain"
)

// UserRepository persists per-chat state in SQLite: conversation state,
// subscriptions, the notification dedup set and the rolling location
// recommendations. All operations for a single chat are serialized through a
// per-chat mutex so the conversation handlers and the notification cycle
// cannot interleave lost updates.
type UserRepository struct {
	db    *sql.DB
	locks sync.Map // chat id -> *sync.Mutex
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) lock(chatID int64) func() {
	v, _ := r.locks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetUser returns the stored record, or the documented defaults when the chat
// id has never been seen. Reading never creates a row.
func (r *UserRepository) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	const q = `
		SELECT chat_id, state, receive_warnings, last_message_id, created_at, updated_at
		FROM users
		WHERE chat_id = ?`

	var u domain.User
	var lastMsg sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, chatID).Scan(
		&u.ChatID, &u.State, &u.ReceiveWarnings, &lastMsg, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultUser(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", chatID, err)
	}
	if lastMsg.Valid {
		id := int(lastMsg.Int64)
		u.LastMessageID = &id
	}
	return &u, nil
}

// ensureUser creates the row with default values on first write.
func (r *UserRepository) ensureUser(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (chat_id) VALUES (?)`, chatID)
	return err
}

func (r *UserRepository) SetState(ctx context.Context, chatID int64, state domain.State) error {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET state = ? WHERE chat_id = ?`, state, chatID)
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

func (r *UserRepository) SetReceiveWarnings(ctx context.Context, chatID int64, receive bool) error {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return fmt.Errorf("set receive warnings: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET receive_warnings = ? WHERE chat_id = ?`, receive, chatID)
	if err != nil {
		return fmt.Errorf("set receive warnings: %w", err)
	}
	return nil
}

// SetLastMessageID records the most recent inline-keyboard message and
// returns the previously tracked one so the caller can retire its keyboard.
func (r *UserRepository) SetLastMessageID(ctx context.Context, chatID int64, messageID int) (*int, error) {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return nil, fmt.Errorf("set last message id: %w", err)
	}

	var prev sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_message_id FROM users WHERE chat_id = ?`, chatID).Scan(&prev)
	if err != nil {
		return nil, fmt.Errorf("set last message id: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_message_id = ? WHERE chat_id = ?`, messageID, chatID); err != nil {
		return nil, fmt.Errorf("set last message id: %w", err)
	}

	if !prev.Valid {
		return nil, nil
	}
	id := int(prev.Int64)
	return &id, nil
}

// AddSubscription upserts the threshold for a (location, category) pair.
func (r *UserRepository) AddSubscription(ctx context.Context, chatID int64, sub domain.Subscription) error {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (chat_id, location, category, level)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id, location, category) DO UPDATE SET level = excluded.level`,
		chatID, sub.Location, sub.Category, sub.Level)
	if err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteSubscription(ctx context.Context, chatID int64, location string, category domain.WarningCategory) error {
	defer r.lock(chatID)()
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ? AND location = ? AND category = ?`,
		chatID, location, category)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// GetSubscriptions returns the user's subscriptions grouped by location.
func (r *UserRepository) GetSubscriptions(ctx context.Context, chatID int64) (domain.SubscriptionSet, error) {
	subs, err := r.ListSubscriptions(ctx, chatID)
	if err != nil {
		return nil, err
	}
	set := domain.SubscriptionSet{}
	for _, s := range subs {
		if set[s.Location] == nil {
			set[s.Location] = map[domain.WarningCategory]int{}
		}
		set[s.Location][s.Category] = s.Level
	}
	return set, nil
}

// ListSubscriptions returns the user's subscriptions in a stable order,
// suitable for building keyboards.
func (r *UserRepository) ListSubscriptions(ctx context.Context, chatID int64) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT location, category, level
		FROM subscriptions
		WHERE chat_id = ?
		ORDER BY location, category`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.Location, &s.Category, &s.Level); err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// GetRecommendations returns the MRU location ring, most recent first.
func (r *UserRepository) GetRecommendations(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT location FROM recommendations WHERE chat_id = ? ORDER BY position`, chatID)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	defer rows.Close()

	var ring []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("get recommendations: %w", err)
		}
		ring = append(ring, loc)
	}
	return ring, rows.Err()
}

// PushRecommendation moves location to the front of the ring and returns the
// new ring.
func (r *UserRepository) PushRecommendation(ctx context.Context, chatID int64, location string) ([]string, error) {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return nil, fmt.Errorf("push recommendation: %w", err)
	}

	ring, err := r.GetRecommendations(ctx, chatID)
	if err != nil {
		return nil, err
	}
	ring = domain.PushRecommendation(ring, location)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("push recommendation: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE chat_id = ?`, chatID); err != nil {
		return nil, fmt.Errorf("push recommendation: %w", err)
	}
	for i, loc := range ring {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recommendations (chat_id, position, location) VALUES (?, ?, ?)`,
			chatID, i, loc); err != nil {
			return nil, fmt.Errorf("push recommendation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("push recommendation: %w", err)
	}
	return ring, nil
}

// ListReceivers returns every chat id that has automatic warnings enabled.
func (r *UserRepository) ListReceivers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id FROM users WHERE receive_warnings = 1`)
	if err != nil {
		return nil, fmt.Errorf("list receivers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list receivers: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NotifiedSet returns the warning ids already delivered to the chat.
func (r *UserRepository) NotifiedSet(ctx context.Context, chatID int64) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT warning_id FROM notified_warnings WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("notified set: %w", err)
	}
	defer rows.Close()

	set := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("notified set: %w", err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// MarkNotified appends a warning id to the chat's dedup set. Called only
// after the send was confirmed. Re-marking an already present id is a no-op.
func (r *UserRepository) MarkNotified(ctx context.Context, chatID int64, warningID string) error {
	defer r.lock(chatID)()
	if err := r.ensureUser(ctx, chatID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notified_warnings (chat_id, warning_id) VALUES (?, ?)`,
		chatID, warningID)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// DeleteUser removes the whole per-chat record atomically.
func (r *UserRepository) DeleteUser(ctx context.Context, chatID int64) error {
	defer r.lock(chatID)()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM subscriptions WHERE chat_id = ?`,
		`DELETE FROM recommendations WHERE chat_id = ?`,
		`DELETE FROM notified_warnings WHERE chat_id = ?`,
		`DELETE FROM users WHERE chat_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, chatID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
	}
	return tx.Commit()
}

// PruneNotified drops dedup entries older than the retention window. Run from
// the maintenance CLI, not during normal operation.
func (r *UserRepository) PruneNotified(ctx context.Context, olderThan time.Duration) (int64, error) {
	// notified_at defaults to CURRENT_TIMESTAMP, which SQLite stores as
	// "YYYY-MM-DD HH:MM:SS" text; the bound must use the same format.
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notified_warnings WHERE notified_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune notified: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
