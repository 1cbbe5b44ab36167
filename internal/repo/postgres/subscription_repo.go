package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

type SubscriptionRecord struct {
	TelegramUserID        int64
	SubscriptionEndsAt    *time.Time
	UnspentSingleReadings int
	PurchasedSingle       int
	PurchasedWeek         int
	PurchasedMonth        int
	PurchasedYear         int
}

type ActiveSubscriptionRecord struct {
	TelegramUserID        int64
	Username              *string
	FirstName             *string
	LastName              *string
	Locale                *string
	SubscriptionEndsAt    *time.Time
	UnspentSingleReadings int
	PurchasedSingle       int
	PurchasedWeek         int
	PurchasedMonth        int
	PurchasedYear         int
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

func (r *SubscriptionRepo) Get(ctx context.Context, userID int64) (SubscriptionRecord, bool, error) {
	if userID <= 0 {
		return SubscriptionRecord{}, false, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return SubscriptionRecord{}, false, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanSubscriptionRow(r.pool.QueryRow(ctx, subscriptionSelect+`
WHERE telegram_user_id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubscriptionRecord{}, false, nil
		}
		return SubscriptionRecord{}, false, fmt.Errorf("get subscription: %w", err)
	}

	return rec, true, nil
}

// GetForUpdate locks the subscription row for the duration of tx. All
// mutating flows must go through this lock before reading current values.
func (r *SubscriptionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (SubscriptionRecord, bool, error) {
	if tx == nil {
		return SubscriptionRecord{}, false, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return SubscriptionRecord{}, false, fmt.Errorf("invalid telegram user id")
	}

	rec, err := scanSubscriptionRow(tx.QueryRow(ctx, subscriptionSelect+`
WHERE telegram_user_id = $1
FOR UPDATE
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubscriptionRecord{}, false, nil
		}
		return SubscriptionRecord{}, false, fmt.Errorf("lock subscription: %w", err)
	}

	return rec, true, nil
}

func (r *SubscriptionRepo) Save(ctx context.Context, rec SubscriptionRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	return saveSubscription(ctx, r.pool, rec)
}

func (r *SubscriptionRepo) SaveTx(ctx context.Context, tx pgx.Tx, rec SubscriptionRecord) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return saveSubscription(ctx, tx, rec)
}

func (r *SubscriptionRepo) ListActive(ctx context.Context) ([]ActiveSubscriptionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.telegram_user_id,
	u.username,
	u.first_name,
	u.last_name,
	u.locale,
	s.subscription_ends_at,
	s.unspent_single_readings,
	s.purchased_single,
	s.purchased_week,
	s.purchased_month,
	s.purchased_year
FROM subscriptions s
JOIN users u ON u.telegram_user_id = s.telegram_user_id
WHERE s.subscription_ends_at > NOW() OR s.unspent_single_readings > 0
ORDER BY s.subscription_ends_at DESC NULLS LAST, u.telegram_user_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	var out []ActiveSubscriptionRecord
	for rows.Next() {
		var rec ActiveSubscriptionRecord
		if err := rows.Scan(
			&rec.TelegramUserID,
			&rec.Username,
			&rec.FirstName,
			&rec.LastName,
			&rec.Locale,
			&rec.SubscriptionEndsAt,
			&rec.UnspentSingleReadings,
			&rec.PurchasedSingle,
			&rec.PurchasedWeek,
			&rec.PurchasedMonth,
			&rec.PurchasedYear,
		); err != nil {
			return nil, fmt.Errorf("scan active subscription: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active subscriptions: %w", err)
	}

	return out, nil
}

const subscriptionSelect = `
SELECT
	telegram_user_id,
	subscription_ends_at,
	unspent_single_readings,
	purchased_single,
	purchased_week,
	purchased_month,
	purchased_year
FROM subscriptions
`

// dbExecer is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// upsert serves locked and unlocked paths.
type dbExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveSubscription(ctx context.Context, db dbExecer, rec SubscriptionRecord) error {
	if rec.TelegramUserID <= 0 {
		return fmt.Errorf("invalid telegram user id")
	}
	if rec.UnspentSingleReadings < 0 {
		return fmt.Errorf("unspent single readings must not be negative")
	}

	var endsAt any
	if rec.SubscriptionEndsAt != nil {
		endsAt = rec.SubscriptionEndsAt.UTC()
	}

	if _, err := db.Exec(ctx, `
INSERT INTO subscriptions (
	telegram_user_id,
	subscription_ends_at,
	unspent_single_readings,
	purchased_single,
	purchased_week,
	purchased_month,
	purchased_year,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (telegram_user_id)
DO UPDATE SET
	subscription_ends_at = EXCLUDED.subscription_ends_at,
	unspent_single_readings = EXCLUDED.unspent_single_readings,
	purchased_single = EXCLUDED.purchased_single,
	purchased_week = EXCLUDED.purchased_week,
	purchased_month = EXCLUDED.purchased_month,
	purchased_year = EXCLUDED.purchased_year,
	updated_at = NOW()
`,
		rec.TelegramUserID,
		endsAt,
		rec.UnspentSingleReadings,
		rec.PurchasedSingle,
		rec.PurchasedWeek,
		rec.PurchasedMonth,
		rec.PurchasedYear,
	); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	return nil
}

func scanSubscriptionRow(row pgx.Row) (SubscriptionRecord, error) {
	var rec SubscriptionRecord
	if err := row.Scan(
		&rec.TelegramUserID,
		&rec.SubscriptionEndsAt,
		&rec.UnspentSingleReadings,
		&rec.PurchasedSingle,
		&rec.PurchasedWeek,
		&rec.PurchasedMonth,
		&rec.PurchasedYear,
	); err != nil {
		return SubscriptionRecord{}, err
	}
	return rec, nil
}
