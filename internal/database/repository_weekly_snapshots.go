package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =====================================================
// WEEKLY SNAPSHOT OPERATIONS
// =====================================================

const weeklySnapshotColumns = `id, platform_id, week_start_date, week_end_date,
	week_number, year, opening_value, closing_value, weekly_return_pct,
	profit_amount, is_interpolated, entered_by, created_at`

func scanWeeklySnapshot(row pgx.Row) (*WeeklySnapshot, error) {
	s := &WeeklySnapshot{}
	err := row.Scan(
		&s.ID, &s.PlatformID, &s.WeekStartDate, &s.WeekEndDate,
		&s.WeekNumber, &s.Year, &s.OpeningValue, &s.ClosingValue, &s.WeeklyReturnPct,
		&s.ProfitAmount, &s.IsInterpolated, &s.EnteredBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// InsertSnapshot stores one weekly snapshot. The unique constraint on
// (platform_id, week_start_date) rejects duplicates for the same week.
func (r *Repository) InsertSnapshot(ctx context.Context, s *WeeklySnapshot) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO weekly_snapshots (id, platform_id, week_start_date, week_end_date,
			week_number, year, opening_value, closing_value, weekly_return_pct,
			profit_amount, is_interpolated, entered_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		s.ID, s.PlatformID, s.WeekStartDate, s.WeekEndDate,
		s.WeekNumber, s.Year, s.OpeningValue, s.ClosingValue, s.WeeklyReturnPct,
		s.ProfitAmount, s.IsInterpolated, s.EnteredBy,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert weekly snapshot: %w", err)
	}

	return nil
}

// SnapshotExists reports whether a snapshot is stored for the given platform
// and week start.
func (r *Repository) SnapshotExists(ctx context.Context, platformID string, weekStart time.Time) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM weekly_snapshots WHERE platform_id = $1 AND week_start_date = $2)`,
		platformID, weekStart,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check weekly snapshot existence: %w", err)
	}

	return exists, nil
}

// LatestEndingBefore returns the platform snapshot with the greatest week end
// at or before t, or nil when none exists.
func (r *Repository) LatestEndingBefore(ctx context.Context, platformID string, t time.Time) (*WeeklySnapshot, error) {
	query := `SELECT ` + weeklySnapshotColumns + `
		FROM weekly_snapshots
		WHERE platform_id = $1 AND week_end_date <= $2
		ORDER BY week_end_date DESC
		LIMIT 1`

	s, err := scanWeeklySnapshot(r.db.Pool.QueryRow(ctx, query, platformID, t))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prior weekly snapshot: %w", err)
	}

	return s, nil
}

// EarliestStartingAfter returns the platform snapshot with the smallest week
// start strictly after t, or nil when none exists.
func (r *Repository) EarliestStartingAfter(ctx context.Context, platformID string, t time.Time) (*WeeklySnapshot, error) {
	query := `SELECT ` + weeklySnapshotColumns + `
		FROM weekly_snapshots
		WHERE platform_id = $1 AND week_start_date > $2
		ORDER BY week_start_date
		LIMIT 1`

	s, err := scanWeeklySnapshot(r.db.Pool.QueryRow(ctx, query, platformID, t))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query following weekly snapshot: %w", err)
	}

	return s, nil
}

// SnapshotsForPlatform returns a platform's snapshots overlapping [from, to)
// ordered by week start.
func (r *Repository) SnapshotsForPlatform(ctx context.Context, platformID string, from, to time.Time) ([]WeeklySnapshot, error) {
	query := `SELECT ` + weeklySnapshotColumns + `
		FROM weekly_snapshots
		WHERE platform_id = $1 AND week_start_date >= $2 AND week_start_date < $3
		ORDER BY week_start_date`

	rows, err := r.db.Pool.Query(ctx, query, platformID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []WeeklySnapshot
	for rows.Next() {
		s, err := scanWeeklySnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}

	return snapshots, rows.Err()
}
