package returns

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculateMonthAllocatesProportionally(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addClient("client-b")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addDeposit("tx-2", "client-b", "500", date(2025, time.January, 10))
	f.addPlatform("p-1", "Alpha", "1500", "10", date(2025, time.January, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	snapshot, err := svc.CalculateMonth(context.Background(), date(2025, time.January, 1))
	if err != nil {
		t.Fatalf("CalculateMonth failed: %v", err)
	}

	if !snapshot.Month.Equal(date(2025, time.January, 1)) {
		t.Errorf("expected month 2025-01-01, got %s", snapshot.Month)
	}
	if !snapshot.TotalCorpus.Equal(dec("1500")) {
		t.Errorf("expected corpus 1500, got %s", snapshot.TotalCorpus)
	}
	if !snapshot.MonthlyReturnPercentage.Equal(dec("10")) {
		t.Errorf("expected return 10%%, got %s", snapshot.MonthlyReturnPercentage)
	}
	if len(snapshot.ClientReturns) != 2 {
		t.Fatalf("expected 2 client returns, got %d", len(snapshot.ClientReturns))
	}

	a := snapshot.ClientReturns[0]
	if a.ClientID != "client-a" {
		t.Fatalf("expected client-a first, got %s", a.ClientID)
	}
	if !a.ReturnAmount.Equal(dec("100")) {
		t.Errorf("client-a return: expected 100, got %s", a.ReturnAmount)
	}
	if !a.ClosingBalance.Equal(dec("1100")) {
		t.Errorf("client-a closing: expected 1100, got %s", a.ClosingBalance)
	}

	b := snapshot.ClientReturns[1]
	if !b.ReturnAmount.Equal(dec("50")) {
		t.Errorf("client-b return: expected 50, got %s", b.ReturnAmount)
	}

	if len(snapshot.PlatformReturns) != 1 {
		t.Fatalf("expected 1 platform return, got %d", len(snapshot.PlatformReturns))
	}
	if !snapshot.PlatformReturns[0].ReturnAmount.Equal(dec("150")) {
		t.Errorf("platform return amount: expected 150, got %s", snapshot.PlatformReturns[0].ReturnAmount)
	}

	if f.monthly[monthKey(date(2025, time.January, 1))] == nil {
		t.Error("snapshot not persisted")
	}
}

func TestCalculateMonthConservesCorpus(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addClient("client-b")
	f.addClient("client-c")
	f.addDeposit("tx-1", "client-a", "333.33", date(2025, time.January, 3))
	f.addDeposit("tx-2", "client-b", "1250.50", date(2025, time.January, 7))
	f.addDeposit("tx-3", "client-c", "416.17", date(2025, time.January, 21))
	f.addPlatform("p-1", "Alpha", "2000", "7", date(2025, time.January, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	snapshot, err := svc.CalculateMonth(context.Background(), date(2025, time.January, 1))
	if err != nil {
		t.Fatalf("CalculateMonth failed: %v", err)
	}

	sum := decimal.Zero
	for _, cr := range snapshot.ClientReturns {
		sum = sum.Add(cr.InvestmentShare)
	}
	if !sum.Equal(snapshot.TotalCorpus) {
		t.Errorf("investment shares sum %s does not equal corpus %s", sum, snapshot.TotalCorpus)
	}
}

func TestCalculateMonthWithRateOverride(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addPlatform("p-1", "Alpha", "1000", "10", date(2025, time.January, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	snapshot, err := svc.CalculateMonthWithRate(context.Background(), date(2025, time.January, 1), dec("7.5"))
	if err != nil {
		t.Fatalf("CalculateMonthWithRate failed: %v", err)
	}

	if !snapshot.MonthlyReturnPercentage.Equal(dec("7.5")) {
		t.Errorf("override ignored: expected 7.5, got %s", snapshot.MonthlyReturnPercentage)
	}
	if !snapshot.ClientReturns[0].ReturnAmount.Equal(dec("75")) {
		t.Errorf("expected return amount 75, got %s", snapshot.ClientReturns[0].ReturnAmount)
	}
}

func TestCalculateMonthZeroCorpus(t *testing.T) {
	f := newFakeStores()
	f.addPlatform("p-1", "Alpha", "1000", "10", date(2025, time.January, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	snapshot, err := svc.CalculateMonth(context.Background(), date(2025, time.January, 1))
	if err != nil {
		t.Fatalf("CalculateMonth failed: %v", err)
	}

	if !snapshot.TotalCorpus.IsZero() {
		t.Errorf("expected zero corpus, got %s", snapshot.TotalCorpus)
	}
	if len(snapshot.ClientReturns) != 0 {
		t.Errorf("expected no client returns, got %d", len(snapshot.ClientReturns))
	}
}

func TestCalculateMonthReplacesExisting(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addPlatform("p-1", "Alpha", "1000", "10", date(2025, time.January, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.CalculateMonth(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("first calculation failed: %v", err)
	}

	f.addDeposit("tx-2", "client-a", "500", date(2025, time.January, 20))
	snapshot, err := svc.CalculateMonth(ctx, date(2025, time.January, 15))
	if err != nil {
		t.Fatalf("second calculation failed: %v", err)
	}

	if len(f.monthly) != 1 {
		t.Fatalf("expected exactly one stored snapshot per month, got %d", len(f.monthly))
	}
	if !snapshot.TotalCorpus.Equal(dec("1500")) {
		t.Errorf("recalculation did not pick up new transaction: corpus %s", snapshot.TotalCorpus)
	}
}
