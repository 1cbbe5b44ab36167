package referrals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

const startParamRefPrefix = "ref_"

var (
	ErrValidation       = errors.New("validation error")
	ErrSelfReferral     = errors.New("self referral")
	ErrAlreadyClaimed   = errors.New("referral already claimed")
	ErrReferrerNotFound = errors.New("referrer not found")
	ErrBonusNotPositive = errors.New("referral bonus is not positive")
	ErrBadReferralParam = errors.New("bad referral start param")
)

type UserStore interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

type ClaimStore interface {
	Claim(ctx context.Context, referredID, referrerID int64, startParam *string, bonusCredits int) error
	Stats(ctx context.Context, referrerID int64) (pgrepo.ReferralStatsRecord, error)
}

type Service struct {
	users        UserStore
	claims       ClaimStore
	bonusCredits int
}

type ClaimInput struct {
	ReferrerID int64
	StartParam string
}

type ClaimResult struct {
	ReferrerID   int64
	BonusCredits int
}

type Stats struct {
	TotalInvited       int
	TotalBonusCredited int
}

func NewService(users UserStore, claims ClaimStore, bonusCredits int) *Service {
	return &Service{
		users:        users,
		claims:       claims,
		bonusCredits: bonusCredits,
	}
}

// ParseStartParam extracts the referrer id from a "ref_<id>" deep-link
// parameter.
func ParseStartParam(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, startParamRefPrefix) {
		return 0, ErrBadReferralParam
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(trimmed, startParamRefPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadReferralParam
	}
	return id, nil
}

// Claim credits the referrer for bringing referredID in. Each user can
// be claimed once, ever; repeats surface as ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, referredID int64, in ClaimInput) (ClaimResult, error) {
	if referredID <= 0 {
		return ClaimResult{}, ErrValidation
	}
	if s.users == nil || s.claims == nil {
		return ClaimResult{}, fmt.Errorf("referral dependencies are not configured")
	}

	referrerID := in.ReferrerID
	if referrerID <= 0 && in.StartParam != "" {
		parsed, err := ParseStartParam(in.StartParam)
		if err != nil {
			return ClaimResult{}, err
		}
		referrerID = parsed
	}
	if referrerID <= 0 {
		return ClaimResult{}, ErrValidation
	}
	if referrerID == referredID {
		return ClaimResult{}, ErrSelfReferral
	}
	if s.bonusCredits <= 0 {
		return ClaimResult{}, ErrBonusNotPositive
	}

	exists, err := s.users.Exists(ctx, referrerID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !exists {
		return ClaimResult{}, ErrReferrerNotFound
	}

	var startParam *string
	if trimmed := strings.TrimSpace(in.StartParam); trimmed != "" {
		startParam = &trimmed
	}

	if err := s.claims.Claim(ctx, referredID, referrerID, startParam, s.bonusCredits); err != nil {
		if errors.Is(err, pgrepo.ErrReferralAlreadyClaimed) {
			return ClaimResult{}, ErrAlreadyClaimed
		}
		return ClaimResult{}, err
	}

	return ClaimResult{
		ReferrerID:   referrerID,
		BonusCredits: s.bonusCredits,
	}, nil
}

func (s *Service) Stats(ctx context.Context, referrerID int64) (Stats, error) {
	if referrerID <= 0 {
		return Stats{}, ErrValidation
	}

	rec, err := s.claims.Stats(ctx, referrerID)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalInvited:       rec.TotalInvited,
		TotalBonusCredited: rec.TotalBonusCredited,
	}, nil
}
