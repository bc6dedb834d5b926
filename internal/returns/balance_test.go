package returns

import (
	"context"
	"testing"
	"time"
)

func TestPreviousClosingBalance(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	// January: client-a invested 1000 at 10% -> closing 1100
	balance, err := svc.PreviousClosingBalance(ctx, "client-a", date(2025, time.February, 14))
	if err != nil {
		t.Fatalf("PreviousClosingBalance failed: %v", err)
	}
	if !balance.Equal(dec("1100")) {
		t.Errorf("expected previous closing 1100, got %s", balance)
	}
}

func TestPreviousClosingBalanceNoSnapshot(t *testing.T) {
	f := newFakeStores()
	svc := newTestService(f, date(2025, time.March, 15))

	balance, err := svc.PreviousClosingBalance(context.Background(), "client-a", date(2025, time.February, 14))
	if err != nil {
		t.Fatalf("PreviousClosingBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero balance with no prior snapshot, got %s", balance)
	}
}

func TestPreviousClosingBalanceUnknownClient(t *testing.T) {
	f := seedCascadeFixture()
	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.RecalculateFromDate(ctx, date(2025, time.January, 1)); err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	balance, err := svc.PreviousClosingBalance(ctx, "client-zzz", date(2025, time.February, 14))
	if err != nil {
		t.Fatalf("PreviousClosingBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero balance for client absent from snapshot, got %s", balance)
	}
}
