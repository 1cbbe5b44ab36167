package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type ProfileStore interface {
	UpsertProfile(ctx context.Context, touch pgrepo.ProfileTouch) error
	Get(ctx context.Context, userID int64) (pgrepo.UserProfileRecord, error)
}

type SubscriptionStore interface {
	Get(ctx context.Context, userID int64) (pgrepo.SubscriptionRecord, bool, error)
}

type EnergyStore interface {
	GetState(ctx context.Context, userID int64) (pgrepo.EnergyStateRecord, error)
}

type ReferralStatsStore interface {
	Stats(ctx context.Context, referrerID int64) (pgrepo.ReferralStatsRecord, error)
}

type ActivityStore interface {
	TouchDay(ctx context.Context, userID int64, day time.Time) error
}

type Service struct {
	profiles  ProfileStore
	subs      SubscriptionStore
	energy    EnergyStore
	referrals ReferralStatsStore
	activity  ActivityStore
	now       func() time.Time
}

type Dependencies struct {
	Profiles  ProfileStore
	Subs      SubscriptionStore
	Energy    EnergyStore
	Referrals ReferralStatsStore
	Activity  ActivityStore
}

type TouchInput struct {
	Username  *string
	FirstName *string
	LastName  *string
	Locale    *string
	PhotoURL  *string
}

type Profile struct {
	TelegramUserID int64
	Username       *string
	FirstName      *string
	LastName       *string
	Locale         *string
	PhotoURL       *string
}

type Perks struct {
	FreeCredits            int
	ReferralCreditsGranted int
	TotalEnergyGranted     int
	UnlimitedUntil         *time.Time
	UnlimitedActive        bool
}

type ReferralSummary struct {
	TotalInvited       int
	TotalBonusCredited int
}

// ServiceEntry is one active entitlement shown on the dashboard.
type ServiceEntry struct {
	Kind      string
	Remaining int
	ExpiresAt *time.Time
}

type Dashboard struct {
	Profile   Profile
	Perks     Perks
	Referrals ReferralSummary
	Services  []ServiceEntry
}

func NewService(deps Dependencies) *Service {
	return &Service{
		profiles:  deps.Profiles,
		subs:      deps.Subs,
		energy:    deps.Energy,
		referrals: deps.Referrals,
		activity:  deps.Activity,
		now:       time.Now,
	}
}

// Touch merges the incoming profile fields and marks today active for
// the streak. Empty incoming fields never erase stored ones.
func (s *Service) Touch(ctx context.Context, userID int64, in TouchInput) (Profile, error) {
	if userID <= 0 {
		return Profile{}, ErrValidation
	}
	if s.profiles == nil {
		return Profile{}, fmt.Errorf("profile store is nil")
	}

	if err := s.profiles.UpsertProfile(ctx, pgrepo.ProfileTouch{
		TelegramUserID: userID,
		Username:       in.Username,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Locale:         in.Locale,
		PhotoURL:       in.PhotoURL,
	}); err != nil {
		return Profile{}, err
	}

	if s.activity != nil {
		if err := s.activity.TouchDay(ctx, userID, s.now().UTC()); err != nil {
			return Profile{}, err
		}
	}

	rec, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	return profileFromRecord(rec), nil
}

// Dashboard composes the profile, perks and active services views into
// the single payload the mini-app home screen renders.
func (s *Service) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	if userID <= 0 {
		return Dashboard{}, ErrValidation
	}

	rec, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Dashboard{}, ErrNotFound
		}
		return Dashboard{}, err
	}

	sub, _, err := s.subs.Get(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	state, err := s.energy.GetState(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	stats, err := s.referrals.Stats(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.now().UTC()
	unlimitedActive := state.UnlimitedUntil != nil && state.UnlimitedUntil.After(now)

	var services []ServiceEntry
	if sub.UnspentSingleReadings > 0 {
		services = append(services, ServiceEntry{
			Kind:      "single_readings",
			Remaining: sub.UnspentSingleReadings,
		})
	}
	if sub.SubscriptionEndsAt != nil && sub.SubscriptionEndsAt.After(now) {
		services = append(services, ServiceEntry{
			Kind:      "subscription",
			ExpiresAt: sub.SubscriptionEndsAt,
		})
	}
	if unlimitedActive {
		services = append(services, ServiceEntry{
			Kind:      "unlimited",
			ExpiresAt: state.UnlimitedUntil,
		})
	}

	return Dashboard{
		Profile: profileFromRecord(rec),
		Perks: Perks{
			FreeCredits:            sub.UnspentSingleReadings,
			ReferralCreditsGranted: state.ReferralCreditsGranted,
			TotalEnergyGranted:     state.TotalEnergyGranted,
			UnlimitedUntil:         state.UnlimitedUntil,
			UnlimitedActive:        unlimitedActive,
		},
		Referrals: ReferralSummary{
			TotalInvited:       stats.TotalInvited,
			TotalBonusCredited: stats.TotalBonusCredited,
		},
		Services: services,
	}, nil
}

func profileFromRecord(rec pgrepo.UserProfileRecord) Profile {
	return Profile{
		TelegramUserID: rec.TelegramUserID,
		Username:       rec.Username,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Locale:         rec.Locale,
		PhotoURL:       rec.PhotoURL,
	}
}
