package returns

import (
	"context"
	"testing"
	"time"
)

func seedCascadeFixture() *fakeStores {
	f := newFakeStores()
	f.addClient("client-a")
	f.addClient("client-b")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 10))
	f.addDeposit("tx-2", "client-b", "500", date(2025, time.February, 5))
	f.addPlatform("p-1", "Alpha", "1500", "10", date(2025, time.January, 2))
	return f
}

func TestRecalculateFromDateCascadesForward(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))

	result, err := svc.RecalculateFromDate(context.Background(), date(2025, time.January, 20))
	if err != nil {
		t.Fatalf("RecalculateFromDate failed: %v", err)
	}

	if result.MonthsRecalculated != 3 {
		t.Fatalf("expected 3 months recalculated, got %d", result.MonthsRecalculated)
	}

	jan := f.monthly[monthKey(date(2025, time.January, 1))]
	feb := f.monthly[monthKey(date(2025, time.February, 1))]
	mar := f.monthly[monthKey(date(2025, time.March, 1))]
	if jan == nil || feb == nil || mar == nil {
		t.Fatal("not every month in range was persisted")
	}

	if !jan.TotalCorpus.Equal(dec("1000")) {
		t.Errorf("January corpus: expected 1000, got %s", jan.TotalCorpus)
	}
	if !feb.TotalCorpus.Equal(dec("1500")) {
		t.Errorf("February corpus: expected 1500, got %s", feb.TotalCorpus)
	}
	if !mar.TotalCorpus.Equal(dec("1500")) {
		t.Errorf("March corpus: expected 1500, got %s", mar.TotalCorpus)
	}
}

func TestRecalculateFromDatePicksUpEditedHistory(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("initial cascade failed: %v", err)
	}

	// Backdated edit: January's 1000 deposit becomes 2000
	f.txs[0].Amount = dec("2000")

	result, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 10))
	if err != nil {
		t.Fatalf("cascade after edit failed: %v", err)
	}
	if result.MonthsRecalculated != 3 {
		t.Fatalf("expected 3 months recalculated, got %d", result.MonthsRecalculated)
	}

	jan := f.monthly[monthKey(date(2025, time.January, 1))]
	feb := f.monthly[monthKey(date(2025, time.February, 1))]
	if !jan.TotalCorpus.Equal(dec("2000")) {
		t.Errorf("January corpus after edit: expected 2000, got %s", jan.TotalCorpus)
	}
	if !feb.TotalCorpus.Equal(dec("2500")) {
		t.Errorf("February corpus after edit: expected 2500, got %s", feb.TotalCorpus)
	}
}

func TestRecalculateFromDateIdempotent(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("first cascade failed: %v", err)
	}
	first := make(map[string]string, len(f.monthly))
	for key, mr := range f.monthly {
		first[key] = mr.TotalCorpus.String() + "/" + mr.MonthlyReturnPercentage.String()
	}

	if _, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("second cascade failed: %v", err)
	}
	for key, mr := range f.monthly {
		got := mr.TotalCorpus.String() + "/" + mr.MonthlyReturnPercentage.String()
		if got != first[key] {
			t.Errorf("month %s changed across identical runs: %s vs %s", key, got, first[key])
		}
	}
}

func TestRecalculateFromDateReportsProgressOnFailure(t *testing.T) {
	f := seedCascadeFixture()
	f.failUpserts[monthKey(date(2025, time.February, 1))] = true
	svc := newTestService(f, date(2025, time.March, 15))

	result, err := svc.RecalculateFromDate(context.Background(), date(2025, time.January, 1))
	if err == nil {
		t.Fatal("expected error when February persistence fails")
	}
	if result.MonthsRecalculated != 1 {
		t.Errorf("expected 1 completed month before failure, got %d", result.MonthsRecalculated)
	}
	if f.monthly[monthKey(date(2025, time.March, 1))] != nil {
		t.Error("March must not be calculated after February failed")
	}
}

func TestRecalculateFromDateFutureStart(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))

	result, err := svc.RecalculateFromDate(context.Background(), date(2025, time.June, 1))
	if err != nil {
		t.Fatalf("RecalculateFromDate failed: %v", err)
	}
	if result.MonthsRecalculated != 0 {
		t.Errorf("expected 0 months for a future start, got %d", result.MonthsRecalculated)
	}
}

func TestRecalculateFromDateHonorsCancellation(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if result.MonthsRecalculated != 0 {
		t.Errorf("expected 0 months after immediate cancellation, got %d", result.MonthsRecalculated)
	}
}
