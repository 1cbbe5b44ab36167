package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/ledger"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvoiceUserMismatch = errors.New("invoice belongs to another user")
)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

type InvoiceRecord struct {
	Payload        string
	TelegramUserID int64
	PackID         string
	GrantType      enums.GrantType
	EnergyAmount   int
	StarsAmount    int
	InvoiceLink    *string
	Status         enums.InvoiceStatus
	GrantAppliedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConfirmResult is the outcome of one confirmation delivery plus the
// energy state after it, so callers can answer webhooks without a
// second read.
type ConfirmResult struct {
	GrantApplied       bool
	PackID             string
	GrantType          enums.GrantType
	EnergyAmount       int
	StarsAmount        int
	TotalEnergyGranted int
	UnlimitedUntil     *time.Time
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// SaveCreated persists a freshly issued invoice. Re-issuing the same
// payload only refreshes the link and amounts, never the lifecycle.
func (r *InvoiceRepo) SaveCreated(ctx context.Context, rec InvoiceRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.Payload == "" || rec.TelegramUserID <= 0 {
		return fmt.Errorf("invalid invoice record")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO energy_payment_invoices (
	payload,
	telegram_user_id,
	pack_id,
	grant_type,
	energy_amount,
	stars_amount,
	invoice_link,
	status,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'created', NOW())
ON CONFLICT (payload)
DO UPDATE SET
	invoice_link = EXCLUDED.invoice_link,
	stars_amount = EXCLUDED.stars_amount,
	energy_amount = EXCLUDED.energy_amount,
	updated_at = NOW()
`,
		rec.Payload,
		rec.TelegramUserID,
		rec.PackID,
		string(rec.GrantType),
		rec.EnergyAmount,
		rec.StarsAmount,
		rec.InvoiceLink,
	); err != nil {
		return fmt.Errorf("save created invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepo) Find(ctx context.Context, payload string) (InvoiceRecord, error) {
	if r.pool == nil {
		return InvoiceRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if payload == "" {
		return InvoiceRecord{}, fmt.Errorf("invoice payload is required")
	}

	rec, err := scanInvoiceRow(r.pool.QueryRow(ctx, invoiceSelect+`
WHERE payload = $1
`, payload))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InvoiceRecord{}, ErrInvoiceNotFound
		}
		return InvoiceRecord{}, fmt.Errorf("find invoice: %w", err)
	}

	return rec, nil
}

// Confirm applies one payment-confirmation delivery. The invoice row is
// locked first; the status update, the grant effect, the ledger append
// and the grant_applied_at flag commit atomically. A payload whose grant
// was already applied returns success without touching anything — the
// call is safe to repeat arbitrarily.
func (r *InvoiceRepo) Confirm(ctx context.Context, payload string, userID int64, status enums.InvoiceStatus, now time.Time) (ConfirmResult, error) {
	if r.pool == nil {
		return ConfirmResult{}, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out ConfirmResult
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := scanInvoiceRow(tx.QueryRow(txCtx, invoiceSelect+`
WHERE payload = $1
FOR UPDATE
`, payload))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("lock invoice: %w", err)
		}

		if rec.TelegramUserID != userID {
			return ErrInvoiceUserMismatch
		}

		if status != rec.Status {
			if _, err := tx.Exec(txCtx, `
UPDATE energy_payment_invoices
SET status = $2, updated_at = NOW()
WHERE payload = $1
`, payload, string(status)); err != nil {
				return fmt.Errorf("update invoice status: %w", err)
			}
		}

		if status == enums.InvoicePaid && rec.GrantAppliedAt == nil {
			if err := applyGrantTx(txCtx, tx, rec, now); err != nil {
				return err
			}
			if _, err := tx.Exec(txCtx, `
UPDATE energy_payment_invoices
SET grant_applied_at = NOW(), updated_at = NOW()
WHERE payload = $1
`, payload); err != nil {
				return fmt.Errorf("mark grant applied: %w", err)
			}
			out.GrantApplied = true
		}

		state, err := readEnergyStateTx(txCtx, tx, userID)
		if err != nil {
			return err
		}

		out.PackID = rec.PackID
		out.GrantType = rec.GrantType
		out.EnergyAmount = rec.EnergyAmount
		out.StarsAmount = rec.StarsAmount
		out.TotalEnergyGranted = state.TotalEnergyGranted
		out.UnlimitedUntil = state.UnlimitedUntil
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	return out, nil
}

func applyGrantTx(ctx context.Context, tx pgx.Tx, rec InvoiceRecord, now time.Time) error {
	if err := ensureEnergyStateTx(ctx, tx, rec.TelegramUserID); err != nil {
		return err
	}
	if err := addEnergyTx(ctx, tx, rec.TelegramUserID, rec.EnergyAmount); err != nil {
		return err
	}

	op := ledger.OperationForGrant(rec.GrantType)
	meta := ledger.Metadata{Op: op}
	if rec.GrantType.IsUnlimited() {
		days := rec.GrantType.UnlimitedDays()
		if err := extendUnlimitedTx(ctx, tx, rec.TelegramUserID, now, days); err != nil {
			return err
		}
		meta.UnlimitedGrant = &ledger.UnlimitedGrant{
			PackID:      rec.PackID,
			StarsAmount: rec.StarsAmount,
			Days:        days,
		}
	} else {
		meta.EnergyTopup = &ledger.EnergyTopup{
			PackID:      rec.PackID,
			StarsAmount: rec.StarsAmount,
		}
	}

	delta := rec.EnergyAmount
	if delta < 0 {
		delta = 0
	}
	payload := rec.Payload
	return appendLedgerTx(ctx, tx, rec.TelegramUserID, delta, &payload, meta)
}

func readEnergyStateTx(ctx context.Context, tx pgx.Tx, userID int64) (EnergyStateRecord, error) {
	var rec EnergyStateRecord
	err := tx.QueryRow(ctx, `
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
		return EnergyStateRecord{}, fmt.Errorf("read energy state: %w", err)
	}
	return rec, nil
}

const invoiceSelect = `
SELECT
	payload,
	telegram_user_id,
	pack_id,
	grant_type,
	energy_amount,
	stars_amount,
	invoice_link,
	status,
	grant_applied_at,
	created_at,
	updated_at
FROM energy_payment_invoices
`

func scanInvoiceRow(row pgx.Row) (InvoiceRecord, error) {
	var rec InvoiceRecord
	var grantType, status string
	if err := row.Scan(
		&rec.Payload,
		&rec.TelegramUserID,
		&rec.PackID,
		&grantType,
		&rec.EnergyAmount,
		&rec.StarsAmount,
		&rec.InvoiceLink,
		&status,
		&rec.GrantAppliedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return InvoiceRecord{}, err
	}
	rec.GrantType = enums.GrantType(grantType)
	rec.Status = enums.InvoiceStatus(status)
	return rec, nil
}
