package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kind constants
const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
)

// Transaction status constants. Cancellation is a soft delete: cancelled
// transactions are excluded from corpus computations but never removed.
// Status is a tagged state rather than a boolean so further states can be
// added without re-encoding call sites.
const (
	TransactionStatusActive    = "active"
	TransactionStatusCancelled = "cancelled"
)

// Platform allocation status constants
const (
	PlatformStatusActive = "active"
	PlatformStatusClosed = "closed"
)

// Client status constants
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

// Client represents an investor whose capital is pooled into the corpus
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// InvestmentTransaction is a ledger entry: a client deposit or withdrawal.
// Amount is always positive; the kind determines the sign in corpus math.
type InvestmentTransaction struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	Amount          decimal.Decimal `json:"amount"`
	Kind            string          `json:"kind"`
	TransactionDate time.Time       `json:"transaction_date"`
	Status          string          `json:"status"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy     *string         `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// EditHistory is loaded on demand, newest last
	EditHistory []TransactionEdit `json:"edit_history,omitempty"`
}

// TransactionEdit records a single amount change on a transaction
type TransactionEdit struct {
	ID             string          `json:"id"`
	TransactionID  string          `json:"transaction_id"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	EditedBy       string          `json:"edited_by"`
	Reason         string          `json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PlatformAllocation represents capital placed with one external trading
// platform. ReturnPercentage and CurrentValue hold the latest known figures
// and may be overwritten ad hoc by data entry.
type PlatformAllocation struct {
	ID               string          `json:"id"`
	PlatformName     string          `json:"platform_name"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount"`
	AllocationDate   time.Time       `json:"allocation_date"`
	ReturnPercentage decimal.Decimal `json:"return_percentage"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// WeeklySnapshot is one platform's value over a single week. WeekEndDate is
// exclusive; exactly one snapshot may exist per (platform, week start).
// Interpolated rows are synthesized gap fills and carry no entered-by user.
type WeeklySnapshot struct {
	ID              string          `json:"id"`
	PlatformID      string          `json:"platform_id"`
	WeekStartDate   time.Time       `json:"week_start_date"`
	WeekEndDate     time.Time       `json:"week_end_date"`
	WeekNumber      int             `json:"week_number"`
	Year            int             `json:"year"`
	OpeningValue    decimal.Decimal `json:"opening_value"`
	ClosingValue    decimal.Decimal `json:"closing_value"`
	WeeklyReturnPct decimal.Decimal `json:"weekly_return_pct"`
	ProfitAmount    decimal.Decimal `json:"profit_amount"`
	IsInterpolated  bool            `json:"is_interpolated"`
	EnteredBy       *string         `json:"entered_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MonthlyReturn is the derived snapshot for one calendar month, keyed by the
// first-of-month date. It is always replaced wholesale, never patched.
type MonthlyReturn struct {
	ID                      string           `json:"id"`
	Month                   time.Time        `json:"month"`
	TotalCorpus             decimal.Decimal  `json:"total_corpus"`
	TotalPlatformValue      decimal.Decimal  `json:"total_platform_value"`
	MonthlyReturnPercentage decimal.Decimal  `json:"monthly_return_percentage"`
	CalculatedAt            time.Time        `json:"calculated_at"`
	ClientReturns           []ClientReturn   `json:"client_returns"`
	PlatformReturns         []PlatformReturn `json:"platform_returns"`
}

// ClientReturn is one client's slice of a monthly return snapshot
type ClientReturn struct {
	ClientID        string          `json:"client_id"`
	InvestmentShare decimal.Decimal `json:"investment_share"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
	ReturnAmount    decimal.Decimal `json:"return_amount"`
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
}

// PlatformReturn is one platform's slice of a monthly return snapshot
type PlatformReturn struct {
	PlatformID       string          `json:"platform_id"`
	PlatformName     string          `json:"platform_name"`
	ReturnPercentage decimal.Decimal `json:"return_percentage"`
	ReturnAmount     decimal.Decimal `json:"return_amount"`
}
