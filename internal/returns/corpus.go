package returns

import (
	"context"
	"fmt"
	"sort"
	"time"

	"capital-returns-engine/internal/database"

	"github.com/shopspring/decimal"
)

// ClientShare is one client's slice of the corpus as of a date
type ClientShare struct {
	ClientID        string          `json:"client_id"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
}

// CorpusResult is the pooled capital and its per-client breakdown
type CorpusResult struct {
	AsOf        time.Time       `json:"as_of"`
	TotalCorpus decimal.Decimal `json:"total_corpus"`
	ClientShares []ClientShare  `json:"client_shares"`
}

// ResolveCorpus computes total pooled capital and each client's share from
// all active (non-cancelled) transactions dated on or before asOf. Deposits
// count positive, withdrawals negative. A transaction referencing an unknown
// client is a data-integrity fault: it is logged and skipped rather than
// failing the whole computation.
//
// An empty or fully cancelled ledger yields a zero corpus and no shares.
// When the corpus is zero every share percentage is defined as zero.
func (s *Service) ResolveCorpus(ctx context.Context, asOf time.Time) (*CorpusResult, error) {
	knownClients, err := s.ledger.KnownClientIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load client references: %w", err)
	}

	txs, err := s.ledger.ActiveTransactionsThrough(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger through %s: %w", asOf.Format("2006-01-02"), err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if _, ok := knownClients[tx.ClientID]; !ok {
			s.logger.Warn().
				Str("transaction_id", tx.ID).
				Str("client_id", tx.ClientID).
				Msg("ledger entry references unknown client, skipping")
			continue
		}

		signed := tx.Amount
		if tx.Kind == database.KindWithdrawal {
			signed = signed.Neg()
		}
		totals[tx.ClientID] = totals[tx.ClientID].Add(signed)
	}

	result := &CorpusResult{AsOf: asOf, TotalCorpus: decimal.Zero}
	for _, total := range totals {
		result.TotalCorpus = result.TotalCorpus.Add(total)
	}

	// Deterministic ordering: shares sorted by client ID
	clientIDs := make([]string, 0, len(totals))
	for id := range totals {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)

	for _, id := range clientIDs {
		share := ClientShare{
			ClientID:        id,
			TotalInvestment: totals[id],
			SharePercentage: decimal.Zero,
		}
		if !result.TotalCorpus.IsZero() {
			share.SharePercentage = totals[id].Div(result.TotalCorpus).Mul(oneHundred).Round(2)
		}
		result.ClientShares = append(result.ClientShares, share)
	}

	return result, nil
}
