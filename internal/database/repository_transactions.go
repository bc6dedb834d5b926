package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// =====================================================
// INVESTMENT TRANSACTION (LEDGER) OPERATIONS
// =====================================================

const transactionColumns = `id, client_id, amount, kind, transaction_date, status,
	cancelled_at, cancelled_by, created_at, updated_at`

func scanTransaction(row pgx.Row) (*InvestmentTransaction, error) {
	tx := &InvestmentTransaction{}
	err := row.Scan(
		&tx.ID, &tx.ClientID, &tx.Amount, &tx.Kind, &tx.TransactionDate, &tx.Status,
		&tx.CancelledAt, &tx.CancelledBy, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateTransaction records a new deposit or withdrawal in the ledger
func (r *Repository) CreateTransaction(ctx context.Context, tx *InvestmentTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = TransactionStatusActive
	}

	query := `
		INSERT INTO investment_transactions (id, client_id, amount, kind, transaction_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		tx.ID, tx.ClientID, tx.Amount, tx.Kind, tx.TransactionDate, tx.Status,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID, including its edit history.
// Returns nil if not found.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*InvestmentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM investment_transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	edits, err := r.TransactionEdits(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.EditHistory = edits

	return tx, nil
}

// ListTransactions returns ledger entries ordered by transaction date.
// Cancelled entries are included only when includeCancelled is set.
func (r *Repository) ListTransactions(ctx context.Context, includeCancelled bool) ([]InvestmentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM investment_transactions`
	if !includeCancelled {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY transaction_date, created_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []InvestmentTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}

	return txs, rows.Err()
}

// ActiveTransactionsThrough returns all non-cancelled transactions dated on
// or before asOf, the input set for corpus resolution.
func (r *Repository) ActiveTransactionsThrough(ctx context.Context, asOf time.Time) ([]InvestmentTransaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM investment_transactions
		WHERE status = 'active' AND transaction_date <= $1
		ORDER BY transaction_date, created_at`

	rows, err := r.db.Pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query active transactions: %w", err)
	}
	defer rows.Close()

	var txs []InvestmentTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}

	return txs, rows.Err()
}

// EditTransactionAmount changes a transaction's amount and appends the change
// to its edit history in the same database transaction.
func (r *Repository) EditTransactionAmount(ctx context.Context, id string, newAmount decimal.Decimal, editedBy, reason string) (*InvestmentTransaction, error) {
	dbTx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin edit transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var previousAmount decimal.Decimal
	err = dbTx.QueryRow(ctx,
		`SELECT amount FROM investment_transactions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&previousAmount)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction for edit: %w", err)
	}

	_, err = dbTx.Exec(ctx,
		`INSERT INTO transaction_edits (id, transaction_id, previous_amount, new_amount, edited_by, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), id, previousAmount, newAmount, editedBy, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction edit: %w", err)
	}

	updated, err := scanTransaction(dbTx.QueryRow(ctx,
		`UPDATE investment_transactions SET amount = $2 WHERE id = $1
		 RETURNING `+transactionColumns, id, newAmount,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction amount: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction edit: %w", err)
	}

	return updated, nil
}

// CancelTransaction soft-deletes a transaction. The row stays in place for
// the audit trail; only its status changes.
func (r *Repository) CancelTransaction(ctx context.Context, id, cancelledBy string) (*InvestmentTransaction, error) {
	query := `
		UPDATE investment_transactions
		SET status = 'cancelled', cancelled_at = CURRENT_TIMESTAMP, cancelled_by = $2
		WHERE id = $1 AND status = 'active'
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.Pool.QueryRow(ctx, query, id, cancelledBy))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("active transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel transaction: %w", err)
	}

	return tx, nil
}

// TransactionEdits returns the ordered edit history for a transaction
func (r *Repository) TransactionEdits(ctx context.Context, transactionID string) ([]TransactionEdit, error) {
	query := `
		SELECT id, transaction_id, previous_amount, new_amount, edited_by, COALESCE(reason, ''), created_at
		FROM transaction_edits
		WHERE transaction_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction edits: %w", err)
	}
	defer rows.Close()

	var edits []TransactionEdit
	for rows.Next() {
		var e TransactionEdit
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.PreviousAmount, &e.NewAmount, &e.EditedBy, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction edit: %w", err)
		}
		edits = append(edits, e)
	}

	return edits, rows.Err()
}
