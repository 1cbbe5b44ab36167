package subscriptions

import (
	"testing"
	"time"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

func TestApplyCompletionSpendsSingleReadingFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	endsAt := now.AddDate(0, 0, 10)

	rec := pgrepo.SubscriptionRecord{
		TelegramUserID:        42,
		SubscriptionEndsAt:    &endsAt,
		UnspentSingleReadings: 2,
	}

	next, outcome, changed := applyCompletion(rec, now)
	if outcome != OutcomeSingle {
		t.Fatalf("unexpected outcome: %s", outcome)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	if next.UnspentSingleReadings != 1 {
		t.Fatalf("unexpected unspent singles: %d", next.UnspentSingleReadings)
	}

	wantEndsAt := endsAt.AddDate(0, 0, -1)
	if next.SubscriptionEndsAt == nil || !next.SubscriptionEndsAt.Equal(wantEndsAt) {
		t.Fatalf("expected window pulled back one day, got %v", next.SubscriptionEndsAt)
	}
}

func TestApplyCompletionSingleFloorsWindowAtNow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	endsAt := now.Add(6 * time.Hour)

	rec := pgrepo.SubscriptionRecord{
		TelegramUserID:        42,
		SubscriptionEndsAt:    &endsAt,
		UnspentSingleReadings: 1,
	}

	next, outcome, _ := applyCompletion(rec, now)
	if outcome != OutcomeSingle {
		t.Fatalf("unexpected outcome: %s", outcome)
	}
	if next.SubscriptionEndsAt == nil || !next.SubscriptionEndsAt.Equal(now) {
		t.Fatalf("expected window floored at now, got %v", next.SubscriptionEndsAt)
	}
}

func TestApplyCompletionSingleWithoutWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	rec := pgrepo.SubscriptionRecord{
		TelegramUserID:        42,
		UnspentSingleReadings: 1,
	}

	next, outcome, changed := applyCompletion(rec, now)
	if outcome != OutcomeSingle || !changed {
		t.Fatalf("unexpected result: outcome=%s changed=%v", outcome, changed)
	}
	if next.UnspentSingleReadings != 0 {
		t.Fatalf("unexpected unspent singles: %d", next.UnspentSingleReadings)
	}
	if next.SubscriptionEndsAt != nil {
		t.Fatalf("window appeared out of nowhere: %v", next.SubscriptionEndsAt)
	}
}

func TestApplyCompletionExpiresTimedWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	endsAt := now.AddDate(0, 0, 20)

	rec := pgrepo.SubscriptionRecord{
		TelegramUserID:     42,
		SubscriptionEndsAt: &endsAt,
	}

	next, outcome, changed := applyCompletion(rec, now)
	if outcome != OutcomeTimed || !changed {
		t.Fatalf("unexpected result: outcome=%s changed=%v", outcome, changed)
	}
	if next.SubscriptionEndsAt == nil || !next.SubscriptionEndsAt.Equal(now) {
		t.Fatalf("expected window expired at now, got %v", next.SubscriptionEndsAt)
	}
}

func TestApplyCompletionWithNoEntitlements(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expired := now.AddDate(0, 0, -3)

	cases := []struct {
		name string
		rec  pgrepo.SubscriptionRecord
	}{
		{name: "empty row", rec: pgrepo.SubscriptionRecord{TelegramUserID: 42}},
		{name: "expired window", rec: pgrepo.SubscriptionRecord{TelegramUserID: 42, SubscriptionEndsAt: &expired}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, outcome, changed := applyCompletion(tc.rec, now)
			if outcome != OutcomeNone {
				t.Fatalf("unexpected outcome: %s", outcome)
			}
			if changed {
				t.Fatalf("no-entitlement completion must not change the row")
			}
			if next.UnspentSingleReadings != tc.rec.UnspentSingleReadings {
				t.Fatalf("unspent singles drifted: %d", next.UnspentSingleReadings)
			}
		})
	}
}

func TestApplyCompletionDrainsSinglesThenWindowThenNothing(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	endsAt := now.AddDate(0, 0, 5)

	rec := pgrepo.SubscriptionRecord{
		TelegramUserID:        42,
		SubscriptionEndsAt:    &endsAt,
		UnspentSingleReadings: 2,
	}

	var outcomes []Outcome
	for i := 0; i < 4; i++ {
		var outcome Outcome
		rec, outcome, _ = applyCompletion(rec, now)
		outcomes = append(outcomes, outcome)
	}

	want := []Outcome{OutcomeSingle, OutcomeSingle, OutcomeTimed, OutcomeNone}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("completion #%d: got %s, want %s", i+1, outcomes[i], want[i])
		}
	}
}
