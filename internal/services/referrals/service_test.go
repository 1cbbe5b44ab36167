package referrals

import (
	"context"
	"errors"
	"testing"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

type userStoreStub struct {
	known map[int64]bool
}

func (s *userStoreStub) Exists(_ context.Context, userID int64) (bool, error) {
	return s.known[userID], nil
}

type claimStoreStub struct {
	claimed map[int64]int64
	credits map[int64]int
}

func newClaimStoreStub() *claimStoreStub {
	return &claimStoreStub{
		claimed: make(map[int64]int64),
		credits: make(map[int64]int),
	}
}

func (s *claimStoreStub) Claim(_ context.Context, referredID, referrerID int64, _ *string, bonusCredits int) error {
	if _, ok := s.claimed[referredID]; ok {
		return pgrepo.ErrReferralAlreadyClaimed
	}
	s.claimed[referredID] = referrerID
	s.credits[referrerID] += bonusCredits
	return nil
}

func (s *claimStoreStub) Stats(_ context.Context, referrerID int64) (pgrepo.ReferralStatsRecord, error) {
	invited := 0
	for _, ref := range s.claimed {
		if ref == referrerID {
			invited++
		}
	}
	return pgrepo.ReferralStatsRecord{
		TotalInvited:       invited,
		TotalBonusCredited: s.credits[referrerID],
	}, nil
}

func newTestService(claims *claimStoreStub) *Service {
	return NewService(&userStoreStub{known: map[int64]bool{100: true}}, claims, 1)
}

func TestClaimCreditsReferrerOnce(t *testing.T) {
	claims := newClaimStoreStub()
	svc := newTestService(claims)

	res, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 100})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if res.ReferrerID != 100 || res.BonusCredits != 1 {
		t.Fatalf("unexpected claim result: %+v", res)
	}

	if _, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 100}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}

	stats, err := svc.Stats(context.Background(), 100)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalInvited != 1 || stats.TotalBonusCredited != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestClaimRejectsSecondReferrerForSameUser(t *testing.T) {
	claims := newClaimStoreStub()
	svc := NewService(&userStoreStub{known: map[int64]bool{100: true, 200: true}}, claims, 1)

	if _, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 100}); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 200}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed for second referrer, got %v", err)
	}
	if claims.credits[200] != 0 {
		t.Fatalf("second referrer must not be credited")
	}
}

func TestClaimRejectsSelfReferral(t *testing.T) {
	svc := newTestService(newClaimStoreStub())

	if _, err := svc.Claim(context.Background(), 100, ClaimInput{ReferrerID: 100}); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected self referral, got %v", err)
	}
}

func TestClaimRejectsUnknownReferrer(t *testing.T) {
	svc := newTestService(newClaimStoreStub())

	if _, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 999}); !errors.Is(err, ErrReferrerNotFound) {
		t.Fatalf("expected referrer not found, got %v", err)
	}
}

func TestClaimResolvesReferrerFromStartParam(t *testing.T) {
	claims := newClaimStoreStub()
	svc := newTestService(claims)

	res, err := svc.Claim(context.Background(), 42, ClaimInput{StartParam: "ref_100"})
	if err != nil {
		t.Fatalf("claim by start param: %v", err)
	}
	if res.ReferrerID != 100 {
		t.Fatalf("unexpected referrer: %d", res.ReferrerID)
	}
}

func TestClaimRejectsNonPositiveBonus(t *testing.T) {
	svc := NewService(&userStoreStub{known: map[int64]bool{100: true}}, newClaimStoreStub(), 0)

	if _, err := svc.Claim(context.Background(), 42, ClaimInput{ReferrerID: 100}); !errors.Is(err, ErrBonusNotPositive) {
		t.Fatalf("expected bonus not positive, got %v", err)
	}
}

func TestParseStartParam(t *testing.T) {
	cases := []struct {
		raw    string
		wantID int64
		wantOK bool
	}{
		{raw: "ref_100", wantID: 100, wantOK: true},
		{raw: "  ref_7 ", wantID: 7, wantOK: true},
		{raw: "ref_0", wantOK: false},
		{raw: "ref_-5", wantOK: false},
		{raw: "ref_abc", wantOK: false},
		{raw: "100", wantOK: false},
		{raw: "", wantOK: false},
	}

	for _, tc := range cases {
		id, err := ParseStartParam(tc.raw)
		if tc.wantOK {
			if err != nil || id != tc.wantID {
				t.Fatalf("parse %q: id=%d err=%v", tc.raw, id, err)
			}
			continue
		}
		if !errors.Is(err, ErrBadReferralParam) {
			t.Fatalf("parse %q: expected bad param, got %v", tc.raw, err)
		}
	}
}
