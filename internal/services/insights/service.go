package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/ledger"
	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUnknownQueryKind = errors.New("unknown query kind")
)

type ActivityStore interface {
	TouchDay(ctx context.Context, userID int64, day time.Time) error
	InsertQueryEvent(ctx context.Context, userID int64, kind enums.QueryKind, props map[string]any, occurredAt time.Time) error
	ListActivityDates(ctx context.Context, userID int64) ([]time.Time, error)
	ListQueryEvents(ctx context.Context, userID int64) ([]pgrepo.QueryEventRecord, error)
}

type EnergyStore interface {
	GetState(ctx context.Context, userID int64) (pgrepo.EnergyStateRecord, error)
	LastOperationAt(ctx context.Context, userID int64, op ledger.Operation) (*time.Time, error)
}

// Service derives streak and awareness metrics from the raw activity
// log on every read. Nothing derived is persisted.
type Service struct {
	activity ActivityStore
	energy   EnergyStore
	policy   config.InsightsConfig
	now      func() time.Time
}

type Streak struct {
	CurrentStreakDays int
	LongestStreakDays int
	ActiveDays        int
	AwarenessPercent  int
	AwarenessLocked   bool
	LastActiveAt      *time.Time
}

func NewService(activity ActivityStore, energy EnergyStore, policy config.InsightsConfig) *Service {
	return &Service{
		activity: activity,
		energy:   energy,
		policy:   policy,
		now:      time.Now,
	}
}

// RecordQuery appends one typed query event and marks the day active.
func (s *Service) RecordQuery(ctx context.Context, userID int64, rawKind string, props map[string]any) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.activity == nil {
		return fmt.Errorf("activity store is nil")
	}

	kind, ok := enums.ParseQueryKind(rawKind)
	if !ok {
		return ErrUnknownQueryKind
	}

	now := s.now().UTC()
	if err := s.activity.InsertQueryEvent(ctx, userID, kind, props, now); err != nil {
		return err
	}
	return s.activity.TouchDay(ctx, userID, now)
}

// TouchActivity marks today active without a query event.
func (s *Service) TouchActivity(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	return s.activity.TouchDay(ctx, userID, s.now().UTC())
}

// Streak computes the activity and awareness view for the user.
func (s *Service) Streak(ctx context.Context, userID int64) (Streak, error) {
	if userID <= 0 {
		return Streak{}, ErrValidation
	}

	dates, err := s.activity.ListActivityDates(ctx, userID)
	if err != nil {
		return Streak{}, err
	}
	events, err := s.activity.ListQueryEvents(ctx, userID)
	if err != nil {
		return Streak{}, err
	}

	now := s.now().UTC()
	current, longest := computeStreaks(dates, now)

	locked, err := s.awarenessLocked(ctx, userID, now)
	if err != nil {
		return Streak{}, err
	}

	awareness := s.policy.MaxPercent
	if !locked {
		awareness = computeAwareness(events, now, s.policy)
	}

	var lastActive *time.Time
	if len(dates) > 0 {
		last := dates[len(dates)-1]
		lastActive = &last
	}

	return Streak{
		CurrentStreakDays: current,
		LongestStreakDays: longest,
		ActiveDays:        len(dates),
		AwarenessPercent:  awareness,
		AwarenessLocked:   locked,
		LastActiveAt:      lastActive,
	}, nil
}

// awarenessLocked holds when the user has an active unlimited window
// and a year-tier purchase inside the lookback horizon.
func (s *Service) awarenessLocked(ctx context.Context, userID int64, now time.Time) (bool, error) {
	if s.energy == nil {
		return false, nil
	}

	state, err := s.energy.GetState(ctx, userID)
	if err != nil {
		return false, err
	}
	if state.UnlimitedUntil == nil || !state.UnlimitedUntil.After(now) {
		return false, nil
	}

	yearGrantAt, err := s.energy.LastOperationAt(ctx, userID, ledger.OpUnlimitedYear)
	if err != nil {
		return false, err
	}
	if yearGrantAt == nil {
		return false, nil
	}

	horizon := now.AddDate(0, 0, -s.policy.YearGrantLookbackDays)
	return yearGrantAt.After(horizon), nil
}

// computeStreaks expects dates sorted ascending at UTC midnight. The
// current streak only counts when the latest active day is today; a
// user with no history at all starts at one.
func computeStreaks(dates []time.Time, now time.Time) (current, longest int) {
	if len(dates) == 0 {
		return 1, 1
	}

	longest = 1
	run := 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := dayOf(now)
	if dates[len(dates)-1].Equal(today) {
		current = 1
		for i := len(dates) - 1; i > 0; i-- {
			if dates[i].Sub(dates[i-1]) != 24*time.Hour {
				break
			}
			current++
		}
	}

	return current, longest
}

// computeAwareness applies the product-tuned scoring heuristic: a base,
// weighted points per historical query, linear decay per full day since
// the last query, clamped to the configured band.
func computeAwareness(events []pgrepo.QueryEventRecord, now time.Time, policy config.InsightsConfig) int {
	score := policy.BasePercent

	var lastAt time.Time
	for _, ev := range events {
		score += queryPoints(ev.Kind, policy)
		if ev.OccurredAt.After(lastAt) {
			lastAt = ev.OccurredAt
		}
	}

	if !lastAt.IsZero() {
		idleDays := int(now.Sub(lastAt) / (24 * time.Hour))
		if idleDays > 0 {
			score -= idleDays * policy.DecayPerDayPoints
		}
	}

	if score < policy.MinPercent {
		score = policy.MinPercent
	}
	if score > policy.MaxPercent {
		score = policy.MaxPercent
	}
	return score
}

func queryPoints(kind enums.QueryKind, policy config.InsightsConfig) int {
	switch {
	case kind.IsDeep():
		return policy.DeepQueryPoints
	case kind.IsDailyCard():
		return policy.DailyCardPoints
	default:
		return policy.ReadingQueryPoints
	}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
