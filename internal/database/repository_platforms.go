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
// PLATFORM ALLOCATION OPERATIONS
// =====================================================

const platformColumns = `id, platform_name, principal_amount, allocation_date,
	return_percentage, current_value, status, created_at, updated_at`

func scanPlatform(row pgx.Row) (*PlatformAllocation, error) {
	p := &PlatformAllocation{}
	err := row.Scan(
		&p.ID, &p.PlatformName, &p.PrincipalAmount, &p.AllocationDate,
		&p.ReturnPercentage, &p.CurrentValue, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateAllocation records capital placed with an external platform. The
// current value starts at the principal until a value update arrives.
func (r *Repository) CreateAllocation(ctx context.Context, alloc *PlatformAllocation) error {
	if alloc.ID == "" {
		alloc.ID = uuid.New().String()
	}
	if alloc.Status == "" {
		alloc.Status = PlatformStatusActive
	}
	if alloc.CurrentValue.IsZero() {
		alloc.CurrentValue = alloc.PrincipalAmount
	}

	query := `
		INSERT INTO platform_allocations (id, platform_name, principal_amount, allocation_date,
			return_percentage, current_value, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		alloc.ID, alloc.PlatformName, alloc.PrincipalAmount, alloc.AllocationDate,
		alloc.ReturnPercentage, alloc.CurrentValue, alloc.Status,
	).Scan(&alloc.CreatedAt, &alloc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create platform allocation: %w", err)
	}

	return nil
}

// GetAllocation retrieves a platform allocation by ID. Returns nil if not found.
func (r *Repository) GetAllocation(ctx context.Context, id string) (*PlatformAllocation, error) {
	query := `SELECT ` + platformColumns + ` FROM platform_allocations WHERE id = $1`

	p, err := scanPlatform(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform allocation: %w", err)
	}

	return p, nil
}

// ListAllocations returns all platform allocations ordered by name
func (r *Repository) ListAllocations(ctx context.Context) ([]PlatformAllocation, error) {
	query := `SELECT ` + platformColumns + ` FROM platform_allocations ORDER BY platform_name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list platform allocations: %w", err)
	}
	defer rows.Close()

	var allocs []PlatformAllocation
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform allocation: %w", err)
		}
		allocs = append(allocs, *p)
	}

	return allocs, rows.Err()
}

// ActiveAllocationsThrough returns active allocations dated on or before end,
// the input set for platform return aggregation.
func (r *Repository) ActiveAllocationsThrough(ctx context.Context, end time.Time) ([]PlatformAllocation, error) {
	query := `SELECT ` + platformColumns + `
		FROM platform_allocations
		WHERE status = 'active' AND allocation_date <= $1
		ORDER BY platform_name`

	rows, err := r.db.Pool.Query(ctx, query, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query active allocations: %w", err)
	}
	defer rows.Close()

	var allocs []PlatformAllocation
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform allocation: %w", err)
		}
		allocs = append(allocs, *p)
	}

	return allocs, rows.Err()
}

// UpdateAllocationValue overwrites a platform's latest value and return
// percentage (ad hoc data entry).
func (r *Repository) UpdateAllocationValue(ctx context.Context, id string, currentValue, returnPercentage decimal.Decimal) (*PlatformAllocation, error) {
	query := `
		UPDATE platform_allocations
		SET current_value = $2, return_percentage = $3
		WHERE id = $1
		RETURNING ` + platformColumns

	p, err := scanPlatform(r.db.Pool.QueryRow(ctx, query, id, currentValue, returnPercentage))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("platform allocation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update platform value: %w", err)
	}

	return p, nil
}

// CloseAllocation marks a platform allocation as closed. Closed allocations
// drop out of return aggregation but keep their snapshot history.
func (r *Repository) CloseAllocation(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE platform_allocations SET status = 'closed' WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("failed to close platform allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active platform allocation %s not found", id)
	}

	return nil
}
