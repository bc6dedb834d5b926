package returns

import (
	"context"
	"fmt"
	"time"

	"capital-returns-engine/internal/database"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fakeStores is an in-memory implementation of every store interface the
// engine consumes, so tests run without a database.
type fakeStores struct {
	clients map[string]struct{}
	txs     []database.InvestmentTransaction
	allocs  []database.PlatformAllocation
	weeks   []database.WeeklySnapshot

	monthly     map[string]*database.MonthlyReturn
	upsertCalls int
	failUpserts map[string]bool // month key -> fail
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		clients:     make(map[string]struct{}),
		monthly:     make(map[string]*database.MonthlyReturn),
		failUpserts: make(map[string]bool),
	}
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func (f *fakeStores) ActiveTransactionsThrough(_ context.Context, asOf time.Time) ([]database.InvestmentTransaction, error) {
	var out []database.InvestmentTransaction
	for _, tx := range f.txs {
		if tx.Status == database.TransactionStatusActive && !tx.TransactionDate.After(asOf) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStores) KnownClientIDs(_ context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(f.clients))
	for id := range f.clients {
		known[id] = struct{}{}
	}
	return known, nil
}

func (f *fakeStores) ActiveAllocationsThrough(_ context.Context, end time.Time) ([]database.PlatformAllocation, error) {
	var out []database.PlatformAllocation
	for _, a := range f.allocs {
		if a.Status == database.PlatformStatusActive && !a.AllocationDate.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStores) SnapshotExists(_ context.Context, platformID string, weekStart time.Time) (bool, error) {
	for _, w := range f.weeks {
		if w.PlatformID == platformID && w.WeekStartDate.Equal(weekStart) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStores) LatestEndingBefore(_ context.Context, platformID string, t time.Time) (*database.WeeklySnapshot, error) {
	var best *database.WeeklySnapshot
	for i := range f.weeks {
		w := &f.weeks[i]
		if w.PlatformID != platformID || w.WeekEndDate.After(t) {
			continue
		}
		if best == nil || w.WeekEndDate.After(best.WeekEndDate) {
			best = w
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (f *fakeStores) EarliestStartingAfter(_ context.Context, platformID string, t time.Time) (*database.WeeklySnapshot, error) {
	var best *database.WeeklySnapshot
	for i := range f.weeks {
		w := &f.weeks[i]
		if w.PlatformID != platformID || !w.WeekStartDate.After(t) {
			continue
		}
		if best == nil || w.WeekStartDate.Before(best.WeekStartDate) {
			best = w
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (f *fakeStores) InsertSnapshot(_ context.Context, s *database.WeeklySnapshot) error {
	for _, w := range f.weeks {
		if w.PlatformID == s.PlatformID && w.WeekStartDate.Equal(s.WeekStartDate) {
			return fmt.Errorf("duplicate weekly snapshot for %s", s.WeekStartDate.Format("2006-01-02"))
		}
	}
	f.weeks = append(f.weeks, *s)
	return nil
}

func (f *fakeStores) UpsertMonthlyReturn(_ context.Context, mr *database.MonthlyReturn) error {
	key := monthKey(mr.Month)
	if f.failUpserts[key] {
		return fmt.Errorf("store unavailable for %s", key)
	}
	f.upsertCalls++
	copied := *mr
	copied.ClientReturns = append([]database.ClientReturn(nil), mr.ClientReturns...)
	copied.PlatformReturns = append([]database.PlatformReturn(nil), mr.PlatformReturns...)
	f.monthly[key] = &copied
	return nil
}

func (f *fakeStores) MonthlyReturnByMonth(_ context.Context, month time.Time) (*database.MonthlyReturn, error) {
	mr, ok := f.monthly[monthKey(month)]
	if !ok {
		return nil, nil
	}
	copied := *mr
	return &copied, nil
}

// newTestService wires the engine to fake stores with a pinned clock
func newTestService(f *fakeStores, now time.Time) *Service {
	svc := NewService(f, f, f, f, nil, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fakeStores) addClient(id string) {
	f.clients[id] = struct{}{}
}

func (f *fakeStores) addDeposit(id, clientID, amount string, day time.Time) {
	f.txs = append(f.txs, database.InvestmentTransaction{
		ID:              id,
		ClientID:        clientID,
		Amount:          dec(amount),
		Kind:            database.KindDeposit,
		TransactionDate: day,
		Status:          database.TransactionStatusActive,
	})
}

func (f *fakeStores) addWithdrawal(id, clientID, amount string, day time.Time) {
	f.txs = append(f.txs, database.InvestmentTransaction{
		ID:              id,
		ClientID:        clientID,
		Amount:          dec(amount),
		Kind:            database.KindWithdrawal,
		TransactionDate: day,
		Status:          database.TransactionStatusActive,
	})
}

func (f *fakeStores) addPlatform(id, name, currentValue, returnPct string, allocated time.Time) {
	f.allocs = append(f.allocs, database.PlatformAllocation{
		ID:               id,
		PlatformName:     name,
		PrincipalAmount:  dec(currentValue),
		AllocationDate:   allocated,
		ReturnPercentage: dec(returnPct),
		CurrentValue:     dec(currentValue),
		Status:           database.PlatformStatusActive,
	})
}

func (f *fakeStores) addWeek(platformID string, start time.Time, opening, closing string) {
	f.weeks = append(f.weeks, database.WeeklySnapshot{
		ID:            fmt.Sprintf("%s-%s", platformID, start.Format("2006-01-02")),
		PlatformID:    platformID,
		WeekStartDate: start,
		WeekEndDate:   start.AddDate(0, 0, 7),
		OpeningValue:  dec(opening),
		ClosingValue:  dec(closing),
	})
}
