package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PreviousClosingBalance looks up the stored closing balance for a client in
// the month immediately preceding date's month. Used by portfolio reporting;
// the monthly profit formula intentionally does not read it. Returns zero
// when no snapshot or client entry exists.
func (s *Service) PreviousClosingBalance(ctx context.Context, clientID string, date time.Time) (decimal.Decimal, error) {
	previousMonth := firstOfMonth(date).AddDate(0, -1, 0)

	snapshot, err := s.snapshots.MonthlyReturnByMonth(ctx, previousMonth)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load snapshot for %s: %w", previousMonth.Format("2006-01"), err)
	}
	if snapshot == nil {
		return decimal.Zero, nil
	}

	for _, cr := range snapshot.ClientReturns {
		if cr.ClientID == clientID {
			return cr.ClosingBalance, nil
		}
	}

	return decimal.Zero, nil
}
