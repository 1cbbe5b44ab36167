package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/ledger"
)

var ErrReferralAlreadyClaimed = errors.New("referral already claimed")

type ReferralRepo struct {
	pool *pgxpool.Pool
}

type ReferralStatsRecord struct {
	TotalInvited       int
	TotalBonusCredited int
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// Claim registers the referred user and credits the referrer in one
// transaction. The primary key on referred_user_id is the at-most-once
// guarantee: a suppressed insert means somebody already claimed this
// user and the whole transaction rolls back.
func (r *ReferralRepo) Claim(ctx context.Context, referredID, referrerID int64, startParam *string, bonusCredits int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if referredID <= 0 || referrerID <= 0 || bonusCredits <= 0 {
		return fmt.Errorf("invalid referral claim")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(txCtx, `
INSERT INTO referral_events (referred_user_id, referrer_user_id, bonus_credits, start_param)
VALUES ($1, $2, $3, $4)
ON CONFLICT (referred_user_id) DO NOTHING
`, referredID, referrerID, bonusCredits, startParam)
		if err != nil {
			return fmt.Errorf("insert referral event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrReferralAlreadyClaimed
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO subscriptions (telegram_user_id, unspent_single_readings, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (telegram_user_id)
DO UPDATE SET
	unspent_single_readings = subscriptions.unspent_single_readings + EXCLUDED.unspent_single_readings,
	updated_at = NOW()
`, referrerID, bonusCredits); err != nil {
			return fmt.Errorf("credit referrer bonus: %w", err)
		}

		if err := ensureEnergyStateTx(txCtx, tx, referrerID); err != nil {
			return err
		}
		if err := addReferralCreditsTx(txCtx, tx, referrerID, bonusCredits); err != nil {
			return err
		}

		var start string
		if startParam != nil {
			start = *startParam
		}
		// Zero delta: the bonus is credit currency, not energy. The row is
		// an audit marker only.
		return appendLedgerTx(txCtx, tx, referrerID, 0, nil, ledger.Metadata{
			Op: ledger.OpReferralBonus,
			ReferralBonus: &ledger.ReferralBonus{
				ReferredUserID: referredID,
				BonusCredits:   bonusCredits,
				StartParam:     start,
			},
		})
	})
}

func (r *ReferralRepo) Stats(ctx context.Context, referrerID int64) (ReferralStatsRecord, error) {
	if referrerID <= 0 {
		return ReferralStatsRecord{}, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return ReferralStatsRecord{}, nil
	}

	var rec ReferralStatsRecord
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)::int, COALESCE(SUM(bonus_credits), 0)::int
FROM referral_events
WHERE referrer_user_id = $1
`, referrerID).Scan(&rec.TotalInvited, &rec.TotalBonusCredited)
	if err != nil {
		return ReferralStatsRecord{}, fmt.Errorf("get referral stats: %w", err)
	}

	return rec, nil
}
