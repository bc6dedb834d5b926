package returns

import (
	"context"
	"testing"
	"time"

	"capital-returns-engine/internal/database"
)

func TestResolveCorpusEmptyLedger(t *testing.T) {
	f := newFakeStores()
	svc := newTestService(f, date(2025, time.March, 15))

	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.March, 31))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.IsZero() {
		t.Errorf("expected zero corpus, got %s", corpus.TotalCorpus)
	}
	if len(corpus.ClientShares) != 0 {
		t.Errorf("expected no client shares, got %d", len(corpus.ClientShares))
	}
}

func TestResolveCorpusSharesAndOrdering(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-b")
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-b", "3000", date(2025, time.January, 5))
	f.addDeposit("tx-2", "client-a", "1000", date(2025, time.January, 10))
	f.addWithdrawal("tx-3", "client-b", "500", date(2025, time.February, 1))

	svc := newTestService(f, date(2025, time.March, 15))
	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.February, 28))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.Equal(dec("3500")) {
		t.Errorf("expected corpus 3500, got %s", corpus.TotalCorpus)
	}
	if len(corpus.ClientShares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(corpus.ClientShares))
	}
	if corpus.ClientShares[0].ClientID != "client-a" || corpus.ClientShares[1].ClientID != "client-b" {
		t.Errorf("shares not sorted by client ID: %s, %s",
			corpus.ClientShares[0].ClientID, corpus.ClientShares[1].ClientID)
	}
	if !corpus.ClientShares[0].TotalInvestment.Equal(dec("1000")) {
		t.Errorf("client-a investment: expected 1000, got %s", corpus.ClientShares[0].TotalInvestment)
	}
	if !corpus.ClientShares[1].TotalInvestment.Equal(dec("2500")) {
		t.Errorf("client-b investment: expected 2500, got %s", corpus.ClientShares[1].TotalInvestment)
	}
	// 1000/3500 = 28.57%, 2500/3500 = 71.43%
	if !corpus.ClientShares[0].SharePercentage.Equal(dec("28.57")) {
		t.Errorf("client-a share: expected 28.57, got %s", corpus.ClientShares[0].SharePercentage)
	}
	if !corpus.ClientShares[1].SharePercentage.Equal(dec("71.43")) {
		t.Errorf("client-b share: expected 71.43, got %s", corpus.ClientShares[1].SharePercentage)
	}
}

func TestResolveCorpusDateCutoff(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addDeposit("tx-2", "client-a", "9000", date(2025, time.February, 2))

	svc := newTestService(f, date(2025, time.March, 15))
	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.January, 31))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.Equal(dec("1000")) {
		t.Errorf("expected corpus 1000 through January, got %s", corpus.TotalCorpus)
	}
}

func TestResolveCorpusExcludesCancelled(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addDeposit("tx-2", "client-a", "500", date(2025, time.January, 8))
	f.txs[1].Status = database.TransactionStatusCancelled

	svc := newTestService(f, date(2025, time.March, 15))
	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.January, 31))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.Equal(dec("1000")) {
		t.Errorf("cancelled transaction leaked into corpus: got %s", corpus.TotalCorpus)
	}
}

func TestResolveCorpusSkipsUnknownClient(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addDeposit("tx-2", "client-ghost", "5000", date(2025, time.January, 6))

	svc := newTestService(f, date(2025, time.March, 15))
	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.January, 31))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.Equal(dec("1000")) {
		t.Errorf("unknown client entry should be skipped, got corpus %s", corpus.TotalCorpus)
	}
	if len(corpus.ClientShares) != 1 {
		t.Errorf("expected 1 share, got %d", len(corpus.ClientShares))
	}
}

func TestResolveCorpusNetWithdrawnToZero(t *testing.T) {
	f := newFakeStores()
	f.addClient("client-a")
	f.addDeposit("tx-1", "client-a", "1000", date(2025, time.January, 5))
	f.addWithdrawal("tx-2", "client-a", "1000", date(2025, time.February, 1))

	svc := newTestService(f, date(2025, time.March, 15))
	corpus, err := svc.ResolveCorpus(context.Background(), date(2025, time.February, 28))
	if err != nil {
		t.Fatalf("ResolveCorpus failed: %v", err)
	}

	if !corpus.TotalCorpus.IsZero() {
		t.Errorf("expected zero corpus, got %s", corpus.TotalCorpus)
	}
	if len(corpus.ClientShares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(corpus.ClientShares))
	}
	if !corpus.ClientShares[0].SharePercentage.IsZero() {
		t.Errorf("share percentage must be zero for a zero corpus, got %s",
			corpus.ClientShares[0].SharePercentage)
	}
}
