package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

type profileStoreStub struct {
	records map[int64]pgrepo.UserProfileRecord
}

func newProfileStoreStub() *profileStoreStub {
	return &profileStoreStub{records: make(map[int64]pgrepo.UserProfileRecord)}
}

func (s *profileStoreStub) UpsertProfile(_ context.Context, touch pgrepo.ProfileTouch) error {
	rec, ok := s.records[touch.TelegramUserID]
	if !ok {
		rec = pgrepo.UserProfileRecord{TelegramUserID: touch.TelegramUserID}
	}
	rec.Username = coalesce(touch.Username, rec.Username)
	rec.FirstName = coalesce(touch.FirstName, rec.FirstName)
	rec.LastName = coalesce(touch.LastName, rec.LastName)
	rec.Locale = coalesce(touch.Locale, rec.Locale)
	rec.PhotoURL = coalesce(touch.PhotoURL, rec.PhotoURL)
	s.records[touch.TelegramUserID] = rec
	return nil
}

func (s *profileStoreStub) Get(_ context.Context, userID int64) (pgrepo.UserProfileRecord, error) {
	rec, ok := s.records[userID]
	if !ok {
		return pgrepo.UserProfileRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

func coalesce(incoming, existing *string) *string {
	if incoming != nil {
		return incoming
	}
	return existing
}

type subscriptionStoreStub struct {
	rec pgrepo.SubscriptionRecord
}

func (s *subscriptionStoreStub) Get(_ context.Context, userID int64) (pgrepo.SubscriptionRecord, bool, error) {
	if s.rec.TelegramUserID != userID {
		return pgrepo.SubscriptionRecord{}, false, nil
	}
	return s.rec, true, nil
}

type energyStoreStub struct {
	rec pgrepo.EnergyStateRecord
}

func (s *energyStoreStub) GetState(_ context.Context, userID int64) (pgrepo.EnergyStateRecord, error) {
	if s.rec.TelegramUserID != userID {
		return pgrepo.EnergyStateRecord{TelegramUserID: userID}, nil
	}
	return s.rec, nil
}

type referralStatsStub struct {
	rec pgrepo.ReferralStatsRecord
}

func (s *referralStatsStub) Stats(_ context.Context, _ int64) (pgrepo.ReferralStatsRecord, error) {
	return s.rec, nil
}

type activityStoreStub struct {
	touched []time.Time
}

func (s *activityStoreStub) TouchDay(_ context.Context, _ int64, day time.Time) error {
	s.touched = append(s.touched, day)
	return nil
}

func strPtr(v string) *string { return &v }

func TestTouchMergesWithoutErasing(t *testing.T) {
	store := newProfileStoreStub()
	activity := &activityStoreStub{}
	svc := NewService(Dependencies{
		Profiles: store,
		Activity: activity,
	})

	first, err := svc.Touch(context.Background(), 42, TouchInput{
		Username:  strPtr("basil"),
		FirstName: strPtr("Basil"),
		Locale:    strPtr("en"),
	})
	if err != nil {
		t.Fatalf("first touch: %v", err)
	}
	if first.Username == nil || *first.Username != "basil" {
		t.Fatalf("unexpected username after first touch: %v", first.Username)
	}

	second, err := svc.Touch(context.Background(), 42, TouchInput{
		Locale: strPtr("ru"),
	})
	if err != nil {
		t.Fatalf("second touch: %v", err)
	}
	if second.Username == nil || *second.Username != "basil" {
		t.Fatalf("partial touch erased username: %v", second.Username)
	}
	if second.Locale == nil || *second.Locale != "ru" {
		t.Fatalf("partial touch did not update locale: %v", second.Locale)
	}

	if len(activity.touched) != 2 {
		t.Fatalf("expected 2 activity touches, got %d", len(activity.touched))
	}
}

func TestTouchRejectsInvalidUserID(t *testing.T) {
	svc := NewService(Dependencies{Profiles: newProfileStoreStub()})

	if _, err := svc.Touch(context.Background(), 0, TouchInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDashboardComposesPerksAndServices(t *testing.T) {
	now := time.Now().UTC()
	endsAt := now.AddDate(0, 0, 7)
	unlimited := now.AddDate(0, 0, 30)

	store := newProfileStoreStub()
	store.records[42] = pgrepo.UserProfileRecord{
		TelegramUserID: 42,
		Username:       strPtr("basil"),
	}

	svc := NewService(Dependencies{
		Profiles: store,
		Subs: &subscriptionStoreStub{rec: pgrepo.SubscriptionRecord{
			TelegramUserID:        42,
			SubscriptionEndsAt:    &endsAt,
			UnspentSingleReadings: 3,
		}},
		Energy: &energyStoreStub{rec: pgrepo.EnergyStateRecord{
			TelegramUserID:         42,
			TotalEnergyGranted:     360,
			UnlimitedUntil:         &unlimited,
			ReferralCreditsGranted: 2,
		}},
		Referrals: &referralStatsStub{rec: pgrepo.ReferralStatsRecord{
			TotalInvited:       2,
			TotalBonusCredited: 2,
		}},
	})

	dash, err := svc.Dashboard(context.Background(), 42)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if dash.Perks.FreeCredits != 3 {
		t.Fatalf("unexpected free credits: %d", dash.Perks.FreeCredits)
	}
	if dash.Perks.TotalEnergyGranted != 360 {
		t.Fatalf("unexpected total energy: %d", dash.Perks.TotalEnergyGranted)
	}
	if !dash.Perks.UnlimitedActive {
		t.Fatalf("expected active unlimited window")
	}
	if dash.Referrals.TotalInvited != 2 {
		t.Fatalf("unexpected invited count: %d", dash.Referrals.TotalInvited)
	}
	if len(dash.Services) != 3 {
		t.Fatalf("expected 3 service entries, got %d", len(dash.Services))
	}
	if dash.Services[0].Kind != "single_readings" || dash.Services[0].Remaining != 3 {
		t.Fatalf("unexpected first service entry: %+v", dash.Services[0])
	}
}

func TestDashboardUnknownUser(t *testing.T) {
	svc := NewService(Dependencies{
		Profiles:  newProfileStoreStub(),
		Subs:      &subscriptionStoreStub{},
		Energy:    &energyStoreStub{},
		Referrals: &referralStatsStub{},
	})

	if _, err := svc.Dashboard(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDashboardExpiredWindowsAreNotServices(t *testing.T) {
	now := time.Now().UTC()
	expired := now.AddDate(0, 0, -1)

	store := newProfileStoreStub()
	store.records[42] = pgrepo.UserProfileRecord{TelegramUserID: 42}

	svc := NewService(Dependencies{
		Profiles: store,
		Subs: &subscriptionStoreStub{rec: pgrepo.SubscriptionRecord{
			TelegramUserID:     42,
			SubscriptionEndsAt: &expired,
		}},
		Energy: &energyStoreStub{rec: pgrepo.EnergyStateRecord{
			TelegramUserID: 42,
			UnlimitedUntil: &expired,
		}},
		Referrals: &referralStatsStub{},
	})

	dash, err := svc.Dashboard(context.Background(), 42)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(dash.Services) != 0 {
		t.Fatalf("expected no service entries, got %+v", dash.Services)
	}
	if dash.Perks.UnlimitedActive {
		t.Fatalf("expired unlimited window must not be active")
	}
}
