package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

type QueryEventRecord struct {
	Kind       enums.QueryKind
	OccurredAt time.Time
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// TouchDay marks the calendar day active for the user. Re-touching the
// same day is a no-op.
func (r *ActivityRepo) TouchDay(ctx context.Context, userID int64, day time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO activity_days (telegram_user_id, activity_date)
VALUES ($1, $2::date)
ON CONFLICT (telegram_user_id, activity_date) DO NOTHING
`, userID, day.UTC()); err != nil {
		return fmt.Errorf("touch activity day: %w", err)
	}

	return nil
}

func (r *ActivityRepo) InsertQueryEvent(ctx context.Context, userID int64, kind enums.QueryKind, props map[string]any, occurredAt time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return nil
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal query event props: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO query_events (telegram_user_id, kind, payload, occurred_at)
VALUES ($1, $2, $3::jsonb, $4)
`, userID, string(kind), string(payload), occurredAt.UTC()); err != nil {
		return fmt.Errorf("insert query event: %w", err)
	}

	return nil
}

// ListActivityDates merges explicit activity-day markers with the UTC
// calendar days of historical query events. Dates come back sorted
// ascending, distinct, at UTC midnight.
func (r *ActivityRepo) ListActivityDates(ctx context.Context, userID int64) ([]time.Time, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT activity_date FROM activity_days WHERE telegram_user_id = $1
UNION
SELECT (occurred_at AT TIME ZONE 'UTC')::date FROM query_events WHERE telegram_user_id = $1
ORDER BY 1 ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan activity date: %w", err)
		}
		out = append(out, time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity dates: %w", err)
	}

	return out, nil
}

func (r *ActivityRepo) ListQueryEvents(ctx context.Context, userID int64) ([]QueryEventRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid telegram user id")
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT kind, occurred_at
FROM query_events
WHERE telegram_user_id = $1
ORDER BY occurred_at ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list query events: %w", err)
	}
	defer rows.Close()

	var out []QueryEventRecord
	for rows.Next() {
		var rec QueryEventRecord
		var kind string
		if err := rows.Scan(&kind, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan query event: %w", err)
		}
		rec.Kind = enums.QueryKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query events: %w", err)
	}

	return out, nil
}
