package returns

import (
	"context"
	"fmt"
	"time"

	"capital-returns-engine/internal/database"

	"github.com/shopspring/decimal"
)

// CalculateMonth derives and persists the return snapshot for the calendar
// month containing monthDate, deriving the return percentage from platform
// data.
func (s *Service) CalculateMonth(ctx context.Context, monthDate time.Time) (*database.MonthlyReturn, error) {
	return s.calculateMonth(ctx, monthDate, nil)
}

// CalculateMonthWithRate is CalculateMonth with a caller-supplied return
// percentage (manual override) instead of the platform-derived one.
func (s *Service) CalculateMonthWithRate(ctx context.Context, monthDate time.Time, returnPct decimal.Decimal) (*database.MonthlyReturn, error) {
	return s.calculateMonth(ctx, monthDate, &returnPct)
}

// calculateMonth is a pure function of store state as of the call, with the
// single side effect of upserting the month's snapshot. The snapshot is
// always replaced wholesale so no stale sub-fields survive a recalculation.
//
// Each client's return is based on its current-month investment share, not
// the prior month's closing balance: profit does not compound onto retained
// profit under this allocation model. Prior closing balances are exposed
// separately through PreviousClosingBalance for portfolio reporting.
func (s *Service) calculateMonth(ctx context.Context, monthDate time.Time, override *decimal.Decimal) (*database.MonthlyReturn, error) {
	startOfMonth := firstOfMonth(monthDate)
	cutoff := endOfMonth(monthDate)

	corpus, err := s.ResolveCorpus(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve corpus for %s: %w", startOfMonth.Format("2006-01"), err)
	}

	platforms, err := s.AggregateReturns(ctx, startOfMonth, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate platform returns for %s: %w", startOfMonth.Format("2006-01"), err)
	}

	returnPct := platforms.WeightedReturnPct
	if override != nil {
		returnPct = override.Round(2)
	}

	snapshot := &database.MonthlyReturn{
		Month:                   startOfMonth,
		TotalCorpus:             corpus.TotalCorpus,
		TotalPlatformValue:      platforms.TotalValue,
		MonthlyReturnPercentage: returnPct,
		CalculatedAt:            s.now().UTC(),
	}

	for _, share := range corpus.ClientShares {
		returnAmount := share.TotalInvestment.Mul(returnPct).Div(oneHundred)
		snapshot.ClientReturns = append(snapshot.ClientReturns, database.ClientReturn{
			ClientID:        share.ClientID,
			InvestmentShare: share.TotalInvestment,
			SharePercentage: share.SharePercentage,
			ReturnAmount:    returnAmount,
			ClosingBalance:  share.TotalInvestment.Add(returnAmount),
		})
	}

	for _, p := range platforms.Platforms {
		snapshot.PlatformReturns = append(snapshot.PlatformReturns, database.PlatformReturn{
			PlatformID:       p.PlatformID,
			PlatformName:     p.PlatformName,
			ReturnPercentage: p.ReturnPercentage,
			ReturnAmount:     p.CurrentValue.Mul(p.ReturnPercentage).Div(oneHundred),
		})
	}

	if err := s.snapshots.UpsertMonthlyReturn(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot for %s: %w", startOfMonth.Format("2006-01"), err)
	}

	s.logger.Info().
		Str("month", startOfMonth.Format("2006-01")).
		Str("total_corpus", snapshot.TotalCorpus.String()).
		Str("return_pct", returnPct.String()).
		Int("clients", len(snapshot.ClientReturns)).
		Msg("monthly return snapshot calculated")

	return snapshot, nil
}
