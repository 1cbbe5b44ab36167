package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

// Outcome reports which entitlement paid for a completed consultation.
type Outcome string

const (
	OutcomeSingle Outcome = "single"
	OutcomeTimed  Outcome = "timed"
	OutcomeNone   Outcome = "none"
)

type Service struct {
	pool *pgxpool.Pool
	subs *pgrepo.SubscriptionRepo
	now  func() time.Time
}

type View struct {
	SubscriptionEndsAt    *time.Time
	UnspentSingleReadings int
	Active                bool
}

type CompleteResult struct {
	Outcome               Outcome
	SubscriptionEndsAt    *time.Time
	UnspentSingleReadings int
}

func NewService(pool *pgxpool.Pool, subs *pgrepo.SubscriptionRepo) *Service {
	return &Service{
		pool: pool,
		subs: subs,
		now:  time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (View, error) {
	if userID <= 0 {
		return View{}, ErrValidation
	}

	rec, _, err := s.subs.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}

	now := s.now().UTC()
	active := rec.UnspentSingleReadings > 0 ||
		(rec.SubscriptionEndsAt != nil && rec.SubscriptionEndsAt.After(now))

	return View{
		SubscriptionEndsAt:    rec.SubscriptionEndsAt,
		UnspentSingleReadings: rec.UnspentSingleReadings,
		Active:                active,
	}, nil
}

func (s *Service) ListActive(ctx context.Context) ([]pgrepo.ActiveSubscriptionRecord, error) {
	return s.subs.ListActive(ctx)
}

// CompleteConsultation settles one finished consultation against the
// user's entitlements. The subscription row stays locked from the
// snapshot read to the save, so concurrent completions serialize and
// each one spends at most one entitlement.
func (s *Service) CompleteConsultation(ctx context.Context, userID int64) (CompleteResult, error) {
	if userID <= 0 {
		return CompleteResult{}, ErrValidation
	}
	if s.pool == nil {
		return CompleteResult{}, fmt.Errorf("postgres pool is nil")
	}

	var out CompleteResult
	err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		rec, found, err := s.subs.GetForUpdate(txCtx, tx, userID)
		if err != nil {
			return err
		}
		if !found {
			rec = pgrepo.SubscriptionRecord{TelegramUserID: userID}
		}

		next, outcome, changed := applyCompletion(rec, s.now().UTC())
		if changed {
			if err := s.subs.SaveTx(txCtx, tx, next); err != nil {
				return err
			}
		}

		out = CompleteResult{
			Outcome:               outcome,
			SubscriptionEndsAt:    next.SubscriptionEndsAt,
			UnspentSingleReadings: next.UnspentSingleReadings,
		}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	return out, nil
}

// applyCompletion is the settlement rule. Single readings are spent
// first; spending one also pulls a timed window back by a day, never
// past now. With no singles left, an active timed window expires on the
// spot. With neither, nothing changes.
func applyCompletion(rec pgrepo.SubscriptionRecord, now time.Time) (pgrepo.SubscriptionRecord, Outcome, bool) {
	if rec.UnspentSingleReadings > 0 {
		rec.UnspentSingleReadings--
		if rec.SubscriptionEndsAt != nil {
			pulled := rec.SubscriptionEndsAt.AddDate(0, 0, -1)
			if pulled.Before(now) {
				pulled = now
			}
			rec.SubscriptionEndsAt = &pulled
		}
		return rec, OutcomeSingle, true
	}

	if rec.SubscriptionEndsAt != nil && rec.SubscriptionEndsAt.After(now) {
		rec.SubscriptionEndsAt = &now
		return rec, OutcomeTimed, true
	}

	return rec, OutcomeNone, false
}
