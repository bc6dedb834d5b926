package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =====================================================
// MONTHLY RETURN SNAPSHOT OPERATIONS
// =====================================================

// UpsertMonthlyReturn stores a monthly return snapshot keyed by its month,
// replacing any existing snapshot wholesale: the parent row is upserted and
// all child rows are deleted and reinserted in one database transaction so a
// month never mixes rows from two calculations.
func (r *Repository) UpsertMonthlyReturn(ctx context.Context, mr *MonthlyReturn) error {
	if mr.ID == "" {
		mr.ID = uuid.New().String()
	}

	dbTx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin monthly return upsert: %w", err)
	}
	defer dbTx.Rollback(ctx)

	// Upsert the parent row. On conflict the existing ID is kept so child
	// foreign keys stay stable.
	err = dbTx.QueryRow(ctx, `
		INSERT INTO monthly_returns (id, month, total_corpus, total_platform_value,
			monthly_return_percentage, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (month) DO UPDATE SET
			total_corpus = EXCLUDED.total_corpus,
			total_platform_value = EXCLUDED.total_platform_value,
			monthly_return_percentage = EXCLUDED.monthly_return_percentage,
			calculated_at = EXCLUDED.calculated_at
		RETURNING id
	`,
		mr.ID, mr.Month, mr.TotalCorpus, mr.TotalPlatformValue,
		mr.MonthlyReturnPercentage, mr.CalculatedAt,
	).Scan(&mr.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly return: %w", err)
	}

	if _, err := dbTx.Exec(ctx,
		`DELETE FROM monthly_client_returns WHERE monthly_return_id = $1`, mr.ID); err != nil {
		return fmt.Errorf("failed to clear client returns: %w", err)
	}
	if _, err := dbTx.Exec(ctx,
		`DELETE FROM monthly_platform_returns WHERE monthly_return_id = $1`, mr.ID); err != nil {
		return fmt.Errorf("failed to clear platform returns: %w", err)
	}

	for i, cr := range mr.ClientReturns {
		_, err := dbTx.Exec(ctx, `
			INSERT INTO monthly_client_returns (id, monthly_return_id, client_id,
				investment_share, share_percentage, return_amount, closing_balance, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			uuid.New().String(), mr.ID, cr.ClientID,
			cr.InvestmentShare, cr.SharePercentage, cr.ReturnAmount, cr.ClosingBalance, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert client return: %w", err)
		}
	}

	for i, pr := range mr.PlatformReturns {
		_, err := dbTx.Exec(ctx, `
			INSERT INTO monthly_platform_returns (id, monthly_return_id, platform_id,
				platform_name, return_percentage, return_amount, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			uuid.New().String(), mr.ID, pr.PlatformID,
			pr.PlatformName, pr.ReturnPercentage, pr.ReturnAmount, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert platform return: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit monthly return upsert: %w", err)
	}

	return nil
}

// MonthlyReturnByMonth loads the snapshot for the given first-of-month date,
// with child rows in their stored order. Returns nil if no snapshot exists.
func (r *Repository) MonthlyReturnByMonth(ctx context.Context, month time.Time) (*MonthlyReturn, error) {
	mr := &MonthlyReturn{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, month, total_corpus, total_platform_value, monthly_return_percentage, calculated_at
		FROM monthly_returns
		WHERE month = $1
	`, month).Scan(
		&mr.ID, &mr.Month, &mr.TotalCorpus, &mr.TotalPlatformValue,
		&mr.MonthlyReturnPercentage, &mr.CalculatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly return: %w", err)
	}

	if err := r.loadMonthlyReturnChildren(ctx, mr); err != nil {
		return nil, err
	}

	return mr, nil
}

// ListMonthlyReturns returns snapshots for months in [from, to) ascending,
// without child rows.
func (r *Repository) ListMonthlyReturns(ctx context.Context, from, to time.Time) ([]MonthlyReturn, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, month, total_corpus, total_platform_value, monthly_return_percentage, calculated_at
		FROM monthly_returns
		WHERE month >= $1 AND month < $2
		ORDER BY month
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly returns: %w", err)
	}
	defer rows.Close()

	var result []MonthlyReturn
	for rows.Next() {
		var mr MonthlyReturn
		err := rows.Scan(
			&mr.ID, &mr.Month, &mr.TotalCorpus, &mr.TotalPlatformValue,
			&mr.MonthlyReturnPercentage, &mr.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly return: %w", err)
		}
		result = append(result, mr)
	}

	return result, rows.Err()
}

func (r *Repository) loadMonthlyReturnChildren(ctx context.Context, mr *MonthlyReturn) error {
	clientRows, err := r.db.Pool.Query(ctx, `
		SELECT client_id, investment_share, share_percentage, return_amount, closing_balance
		FROM monthly_client_returns
		WHERE monthly_return_id = $1
		ORDER BY position
	`, mr.ID)
	if err != nil {
		return fmt.Errorf("failed to load client returns: %w", err)
	}
	defer clientRows.Close()

	for clientRows.Next() {
		var cr ClientReturn
		if err := clientRows.Scan(&cr.ClientID, &cr.InvestmentShare, &cr.SharePercentage, &cr.ReturnAmount, &cr.ClosingBalance); err != nil {
			return fmt.Errorf("failed to scan client return: %w", err)
		}
		mr.ClientReturns = append(mr.ClientReturns, cr)
	}
	if err := clientRows.Err(); err != nil {
		return err
	}

	platformRows, err := r.db.Pool.Query(ctx, `
		SELECT platform_id, platform_name, return_percentage, return_amount
		FROM monthly_platform_returns
		WHERE monthly_return_id = $1
		ORDER BY position
	`, mr.ID)
	if err != nil {
		return fmt.Errorf("failed to load platform returns: %w", err)
	}
	defer platformRows.Close()

	for platformRows.Next() {
		var pr PlatformReturn
		if err := platformRows.Scan(&pr.PlatformID, &pr.PlatformName, &pr.ReturnPercentage, &pr.ReturnAmount); err != nil {
			return fmt.Errorf("failed to scan platform return: %w", err)
		}
		mr.PlatformReturns = append(mr.PlatformReturns, pr)
	}

	return platformRows.Err()
}
