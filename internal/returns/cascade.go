package returns

import (
	"context"
	"fmt"
	"time"
)

// RecalcResult reports how far a cascade run progressed
type RecalcResult struct {
	MonthsRecalculated int       `json:"months_recalculated"`
	FromMonth          time.Time `json:"from_month"`
	ThroughMonth       time.Time `json:"through_month"`
}

// RecalculateFromDate recomputes every calendar month from fromDate's month
// through the current month, ascending. Strict ordering is a correctness
// requirement: a month's snapshot must be written before any later month
// that reads prior closing balances is recalculated.
//
// Runs are serialized by a single mutex so concurrent triggers cannot
// interleave writes for overlapping month ranges. The run is an ordered fold
// over months: the only state carried between iterations is the persisted
// snapshot of the month just written.
//
// On failure the result still reports how many months completed, so the
// caller can retry from the first unprocessed month. Cancellation via ctx is
// honored between months, bounding latency when an old-dated edit triggers a
// long cascade.
func (s *Service) RecalculateFromDate(ctx context.Context, fromDate time.Time) (*RecalcResult, error) {
	s.cascadeMu.Lock()
	defer s.cascadeMu.Unlock()

	month := firstOfMonth(fromDate)
	through := firstOfMonth(s.now().UTC())

	result := &RecalcResult{FromMonth: month, ThroughMonth: through}
	if month.After(through) {
		return result, nil
	}

	if s.bus != nil {
		s.bus.PublishRecalcStarted(month, through)
	}

	for !month.After(through) {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("recalculation interrupted after %d months: %w", result.MonthsRecalculated, err)
		}

		snapshot, err := s.CalculateMonth(ctx, month)
		if err != nil {
			if s.bus != nil {
				s.bus.PublishError("recalculation", err)
			}
			return result, fmt.Errorf("recalculation stopped at %s after %d months: %w",
				month.Format("2006-01"), result.MonthsRecalculated, err)
		}

		result.MonthsRecalculated++
		if s.bus != nil {
			s.bus.PublishRecalcMonthCompleted(month,
				snapshot.MonthlyReturnPercentage.String(), snapshot.TotalCorpus.String())
		}

		month = month.AddDate(0, 1, 0)
	}

	s.logger.Info().
		Str("from", result.FromMonth.Format("2006-01")).
		Str("through", result.ThroughMonth.Format("2006-01")).
		Int("months", result.MonthsRecalculated).
		Msg("recalculation cascade completed")

	if s.bus != nil {
		s.bus.PublishRecalcFinished(result.MonthsRecalculated)
	}

	return result, nil
}
