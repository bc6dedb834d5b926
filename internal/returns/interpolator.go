package returns

import (
	"context"
	"fmt"
	"math"
	"time"

	"capital-returns-engine/internal/database"

	"github.com/shopspring/decimal"
)

// InterpolateGaps fills missing weekly snapshots for one platform between
// rangeStart (inclusive) and rangeEnd (exclusive), walking the range in
// 7-day strides anchored at rangeStart. A missing week is synthesized only
// when both a prior and a following stored snapshot exist; values are placed
// on the straight line between the prior closing value and the following
// opening value. Gaps at either edge of known data are left unfilled: the
// interpolator never extrapolates.
//
// Synthesized rows are flagged is_interpolated with no entered-by user.
// Running the same range twice inserts nothing new: each week is checked for
// existence first, and the storage unique key on (platform, week start) is
// the backstop. Returns the number of weeks inserted.
func (s *Service) InterpolateGaps(ctx context.Context, platformID string, rangeStart, rangeEnd time.Time) (int, error) {
	inserted := 0

	for weekStart := rangeStart; weekStart.Before(rangeEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		exists, err := s.weekly.SnapshotExists(ctx, platformID, weekStart)
		if err != nil {
			return inserted, fmt.Errorf("failed to check week %s: %w", weekStart.Format("2006-01-02"), err)
		}
		if exists {
			continue
		}

		before, err := s.weekly.LatestEndingBefore(ctx, platformID, weekStart)
		if err != nil {
			return inserted, fmt.Errorf("failed to find prior snapshot for week %s: %w", weekStart.Format("2006-01-02"), err)
		}
		after, err := s.weekly.EarliestStartingAfter(ctx, platformID, weekStart)
		if err != nil {
			return inserted, fmt.Errorf("failed to find following snapshot for week %s: %w", weekStart.Format("2006-01-02"), err)
		}
		if before == nil || after == nil {
			// Missing boundary: leave the gap, no extrapolation past known data
			continue
		}

		// Steps from before.closing to after.opening: the missing weeks in
		// the gap plus the final step onto after's opening value. This keeps
		// every synthesized value on the line between the two boundaries.
		gapDays := after.WeekStartDate.Sub(before.WeekEndDate).Hours() / 24
		steps := int(math.Ceil(gapDays/7)) + 1
		if steps < 1 {
			steps = 1
		}

		changePerWeek := after.OpeningValue.Sub(before.ClosingValue).Div(decimal.NewFromInt(int64(steps)))
		opening := before.ClosingValue
		closing := opening.Add(changePerWeek)

		returnPct := decimal.Zero
		if !opening.IsZero() {
			returnPct = closing.Sub(opening).Div(opening).Mul(oneHundred).Round(2)
		}

		year, weekNumber := weekStart.ISOWeek()
		snapshot := &database.WeeklySnapshot{
			PlatformID:      platformID,
			WeekStartDate:   weekStart,
			WeekEndDate:     weekStart.AddDate(0, 0, 7),
			WeekNumber:      weekNumber,
			Year:            year,
			OpeningValue:    opening,
			ClosingValue:    closing,
			WeeklyReturnPct: returnPct,
			ProfitAmount:    closing.Sub(opening),
			IsInterpolated:  true,
			EnteredBy:       nil,
		}

		if err := s.weekly.InsertSnapshot(ctx, snapshot); err != nil {
			return inserted, fmt.Errorf("failed to insert interpolated week %s: %w", weekStart.Format("2006-01-02"), err)
		}

		s.logger.Debug().
			Str("platform_id", platformID).
			Str("week_start", weekStart.Format("2006-01-02")).
			Str("closing_value", closing.String()).
			Msg("interpolated missing weekly snapshot")
		inserted++
	}

	return inserted, nil
}
