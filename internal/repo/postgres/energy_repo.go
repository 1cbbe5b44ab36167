package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/ledger"
)

type EnergyRepo struct {
	pool *pgxpool.Pool
}

type EnergyStateRecord struct {
	TelegramUserID         int64
	TotalEnergyGranted     int
	UnlimitedUntil         *time.Time
	ReferralCreditsGranted int
}

func NewEnergyRepo(pool *pgxpool.Pool) *EnergyRepo {
	return &EnergyRepo{pool: pool}
}

func (r *EnergyRepo) GetState(ctx context.Context, userID int64) (EnergyStateRecord, error) {
	if userID <= 0 {
		return EnergyStateRecord{}, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return EnergyStateRecord{TelegramUserID: userID}, nil
	}

	var rec EnergyStateRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	telegram_user_id,
	total_energy_granted,
	unlimited_until,
	referral_credits_granted
FROM user_energy_state
WHERE telegram_user_id = $1
`, userID).Scan(
		&rec.TelegramUserID,
		&rec.TotalEnergyGranted,
		&rec.UnlimitedUntil,
		&rec.ReferralCreditsGranted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnergyStateRecord{TelegramUserID: userID}, nil
		}
		return EnergyStateRecord{}, fmt.Errorf("get energy state: %w", err)
	}

	return rec, nil
}

// LastOperationAt reports the newest ledger row of the given operation,
// or nil when the user never had one.
func (r *EnergyRepo) LastOperationAt(ctx context.Context, userID int64, op ledger.Operation) (*time.Time, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return nil, nil
	}

	var at *time.Time
	err := r.pool.QueryRow(ctx, `
SELECT MAX(created_at)
FROM energy_ledger
WHERE telegram_user_id = $1 AND operation = $2
`, userID, string(op)).Scan(&at)
	if err != nil {
		return nil, fmt.Errorf("get last ledger operation: %w", err)
	}

	return at, nil
}

func ensureEnergyStateTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO user_energy_state (telegram_user_id, updated_at)
VALUES ($1, NOW())
ON CONFLICT (telegram_user_id) DO NOTHING
`, userID); err != nil {
		return fmt.Errorf("ensure energy state row: %w", err)
	}
	return nil
}

func addEnergyTx(ctx context.Context, tx pgx.Tx, userID int64, amount int) error {
	if amount < 0 {
		amount = 0
	}
	if _, err := tx.Exec(ctx, `
UPDATE user_energy_state
SET
	total_energy_granted = total_energy_granted + $2,
	updated_at = NOW()
WHERE telegram_user_id = $1
`, userID, amount); err != nil {
		return fmt.Errorf("add granted energy: %w", err)
	}
	return nil
}

// extendUnlimitedTx stacks the new window on the remaining one, or
// restarts from now when the previous grant already lapsed. It must not
// add to a stale timestamp.
func extendUnlimitedTx(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, days int) error {
	if days <= 0 {
		return fmt.Errorf("unlimited extension days must be positive")
	}
	if _, err := tx.Exec(ctx, `
UPDATE user_energy_state
SET
	unlimited_until = GREATEST(COALESCE(unlimited_until, $2::timestamptz), $2::timestamptz) + make_interval(days => $3),
	updated_at = NOW()
WHERE telegram_user_id = $1
`, userID, now.UTC(), days); err != nil {
		return fmt.Errorf("extend unlimited window: %w", err)
	}
	return nil
}

func addReferralCreditsTx(ctx context.Context, tx pgx.Tx, userID int64, credits int) error {
	if credits <= 0 {
		return fmt.Errorf("referral credits must be positive")
	}
	if _, err := tx.Exec(ctx, `
UPDATE user_energy_state
SET
	referral_credits_granted = referral_credits_granted + $2,
	updated_at = NOW()
WHERE telegram_user_id = $1
`, userID, credits); err != nil {
		return fmt.Errorf("add referral credits: %w", err)
	}
	return nil
}

func appendLedgerTx(ctx context.Context, tx pgx.Tx, userID int64, delta int, payload *string, meta ledger.Metadata) error {
	metaJSON, err := meta.MarshalJSONB()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO energy_ledger (
	telegram_user_id,
	delta_energy,
	operation,
	payload,
	metadata
) VALUES ($1, $2, $3, $4, $5::jsonb)
`, userID, delta, string(meta.Op), payload, metaJSON); err != nil {
		return fmt.Errorf("append energy ledger entry: %w", err)
	}
	return nil
}
