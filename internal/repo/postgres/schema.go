package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the ledger tables when they are missing. The unique
// keys below are load-bearing: invoice payload and referred_user_id are the
// structural idempotency guarantees, not application-level checks.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}

	statements := []string{
		`
CREATE TABLE IF NOT EXISTS users (
	telegram_user_id BIGINT PRIMARY KEY,
	username TEXT,
	first_name TEXT,
	last_name TEXT,
	locale TEXT,
	photo_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS subscriptions (
	telegram_user_id BIGINT PRIMARY KEY REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	subscription_ends_at TIMESTAMPTZ,
	unspent_single_readings INTEGER NOT NULL DEFAULT 0 CHECK (unspent_single_readings >= 0),
	purchased_single INTEGER NOT NULL DEFAULT 0,
	purchased_week INTEGER NOT NULL DEFAULT 0,
	purchased_month INTEGER NOT NULL DEFAULT 0,
	purchased_year INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS energy_payment_invoices (
	payload TEXT PRIMARY KEY,
	telegram_user_id BIGINT NOT NULL REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	pack_id TEXT NOT NULL,
	grant_type TEXT NOT NULL,
	energy_amount INTEGER NOT NULL DEFAULT 0,
	stars_amount INTEGER NOT NULL,
	invoice_link TEXT,
	status TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created','paid','failed')),
	grant_applied_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS user_energy_state (
	telegram_user_id BIGINT PRIMARY KEY REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	total_energy_granted INTEGER NOT NULL DEFAULT 0,
	unlimited_until TIMESTAMPTZ,
	referral_credits_granted INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS energy_ledger (
	id BIGSERIAL PRIMARY KEY,
	telegram_user_id BIGINT NOT NULL REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	delta_energy INTEGER NOT NULL DEFAULT 0,
	operation TEXT NOT NULL,
	payload TEXT,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS referral_events (
	referred_user_id BIGINT PRIMARY KEY,
	referrer_user_id BIGINT NOT NULL REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	bonus_credits INTEGER NOT NULL,
	start_param TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`
CREATE TABLE IF NOT EXISTS activity_days (
	telegram_user_id BIGINT NOT NULL REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	activity_date DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (telegram_user_id, activity_date)
)`,
		`
CREATE TABLE IF NOT EXISTS query_events (
	id BIGSERIAL PRIMARY KEY,
	telegram_user_id BIGINT NOT NULL REFERENCES users(telegram_user_id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	payload JSONB,
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_energy_ledger_user_created ON energy_ledger (telegram_user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_query_events_user_occurred ON query_events (telegram_user_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_events_referrer ON referral_events (referrer_user_id)`,
		`CREATE INDEX IF NOT EXISTS subscriptions_active_idx ON subscriptions (subscription_ends_at, unspent_single_readings)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
