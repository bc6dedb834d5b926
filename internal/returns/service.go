// Package returns implements the pooled-capital returns engine: corpus
// resolution, platform return aggregation, weekly gap interpolation, monthly
// return calculation and the forward recalculation cascade.
package returns

import (
	"context"
	"sync"
	"time"

	"capital-returns-engine/internal/database"
	"capital-returns-engine/internal/events"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerStore supplies investment transactions and client references
type LedgerStore interface {
	ActiveTransactionsThrough(ctx context.Context, asOf time.Time) ([]database.InvestmentTransaction, error)
	KnownClientIDs(ctx context.Context) (map[string]struct{}, error)
}

// PlatformStore supplies platform allocation records
type PlatformStore interface {
	ActiveAllocationsThrough(ctx context.Context, end time.Time) ([]database.PlatformAllocation, error)
}

// WeeklySnapshotStore supplies and receives weekly platform snapshots
type WeeklySnapshotStore interface {
	SnapshotExists(ctx context.Context, platformID string, weekStart time.Time) (bool, error)
	LatestEndingBefore(ctx context.Context, platformID string, t time.Time) (*database.WeeklySnapshot, error)
	EarliestStartingAfter(ctx context.Context, platformID string, t time.Time) (*database.WeeklySnapshot, error)
	InsertSnapshot(ctx context.Context, s *database.WeeklySnapshot) error
}

// ReturnStore persists monthly return snapshots. The engine is the only
// writer of this entity.
type ReturnStore interface {
	UpsertMonthlyReturn(ctx context.Context, mr *database.MonthlyReturn) error
	MonthlyReturnByMonth(ctx context.Context, month time.Time) (*database.MonthlyReturn, error)
}

// Service is the returns engine. It is stateless apart from the mutex that
// serializes cascade runs; all data flows through the injected stores, so
// tests run against in-memory fakes.
type Service struct {
	ledger    LedgerStore
	platforms PlatformStore
	weekly    WeeklySnapshotStore
	snapshots ReturnStore
	bus       *events.EventBus
	logger    zerolog.Logger

	// now is swappable in tests to pin the cascade's "current month"
	now func() time.Time

	// cascadeMu enforces one logical writer: recalculation runs never
	// interleave, so every month observes fully recalculated prior months.
	cascadeMu sync.Mutex
}

// NewService creates the returns engine. bus may be nil when no progress
// events are wanted.
func NewService(
	ledger LedgerStore,
	platforms PlatformStore,
	weekly WeeklySnapshotStore,
	snapshots ReturnStore,
	bus *events.EventBus,
	logger zerolog.Logger,
) *Service {
	return &Service{
		ledger:    ledger,
		platforms: platforms,
		weekly:    weekly,
		snapshots: snapshots,
		bus:       bus,
		logger:    logger.With().Str("component", "returns").Logger(),
		now:       time.Now,
	}
}

var (
	oneHundred = decimal.NewFromInt(100)
)

// firstOfMonth truncates t to the first day of its calendar month in UTC
func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// endOfMonth returns the last representable instant of t's calendar month,
// used as the inclusive ledger cutoff.
func endOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
