package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserProfileRecord struct {
	TelegramUserID int64
	Username       *string
	FirstName      *string
	LastName       *string
	Locale         *string
	PhotoURL       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileTouch carries the incoming fields of a profile-touch event.
// Nil fields are ignored by the merge.
type ProfileTouch struct {
	TelegramUserID int64
	Username       *string
	FirstName      *string
	LastName       *string
	Locale         *string
	PhotoURL       *string
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertProfile merges the touch into the users row. Every column uses
// COALESCE(EXCLUDED.col, users.col): a null incoming value never
// overwrites an existing non-null value.
func (r *UserRepo) UpsertProfile(ctx context.Context, touch ProfileTouch) error {
	if touch.TelegramUserID <= 0 {
		return fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO users (telegram_user_id, username, first_name, last_name, locale, photo_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (telegram_user_id)
DO UPDATE SET
	username = COALESCE(EXCLUDED.username, users.username),
	first_name = COALESCE(EXCLUDED.first_name, users.first_name),
	last_name = COALESCE(EXCLUDED.last_name, users.last_name),
	locale = COALESCE(EXCLUDED.locale, users.locale),
	photo_url = COALESCE(EXCLUDED.photo_url, users.photo_url),
	updated_at = NOW()
`,
		touch.TelegramUserID,
		normalizeNullable(touch.Username),
		normalizeNullable(touch.FirstName),
		normalizeNullable(touch.LastName),
		normalizeNullable(touch.Locale),
		normalizeNullable(touch.PhotoURL),
	); err != nil {
		return fmt.Errorf("upsert user profile: %w", err)
	}

	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (UserProfileRecord, error) {
	if userID <= 0 {
		return UserProfileRecord{}, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return UserProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec UserProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	telegram_user_id,
	username,
	first_name,
	last_name,
	locale,
	photo_url,
	created_at,
	updated_at
FROM users
WHERE telegram_user_id = $1
`, userID).Scan(
		&rec.TelegramUserID,
		&rec.Username,
		&rec.FirstName,
		&rec.LastName,
		&rec.Locale,
		&rec.PhotoURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserProfileRecord{}, ErrUserNotFound
		}
		return UserProfileRecord{}, fmt.Errorf("get user profile: %w", err)
	}

	return rec, nil
}

func (r *UserRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1 FROM users WHERE telegram_user_id = $1
`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return true, nil
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
