package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlatformValue is one platform's contribution to the aggregate, carried
// verbatim into the persisted monthly snapshot.
type PlatformValue struct {
	PlatformID       string          `json:"platform_id"`
	PlatformName     string          `json:"platform_name"`
	ReturnPercentage decimal.Decimal `json:"return_percentage"`
	CurrentValue     decimal.Decimal `json:"current_value"`
}

// PlatformAggregate is the blended return across all active platforms
type PlatformAggregate struct {
	TotalValue        decimal.Decimal `json:"total_value"`
	WeightedReturnPct decimal.Decimal `json:"weighted_return_pct"`
	Platforms         []PlatformValue `json:"platforms"`
}

// AggregateReturns computes the single weighted return percentage across all
// active platform allocations dated on or before periodEnd, weighting each
// platform's return percentage by its current value.
//
// Platform values are not time-sliced: historical periods see each
// platform's latest entered value, so recalculating an old month uses
// present-day values. Changing this to read the weekly snapshot history is a
// behavior change to every stored month and needs explicit sign-off.
//
// A zero total value defines the weighted return as zero.
func (s *Service) AggregateReturns(ctx context.Context, periodStart, periodEnd time.Time) (*PlatformAggregate, error) {
	allocs, err := s.platforms.ActiveAllocationsThrough(ctx, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform allocations through %s: %w", periodEnd.Format("2006-01-02"), err)
	}

	agg := &PlatformAggregate{
		TotalValue:        decimal.Zero,
		WeightedReturnPct: decimal.Zero,
	}

	weightedSum := decimal.Zero
	for _, alloc := range allocs {
		agg.TotalValue = agg.TotalValue.Add(alloc.CurrentValue)
		weightedSum = weightedSum.Add(alloc.CurrentValue.Mul(alloc.ReturnPercentage))
		agg.Platforms = append(agg.Platforms, PlatformValue{
			PlatformID:       alloc.ID,
			PlatformName:     alloc.PlatformName,
			ReturnPercentage: alloc.ReturnPercentage,
			CurrentValue:     alloc.CurrentValue,
		})
	}

	if !agg.TotalValue.IsZero() {
		agg.WeightedReturnPct = weightedSum.Div(agg.TotalValue).Round(2)
	}

	return agg, nil
}
