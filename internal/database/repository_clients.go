package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =====================================================
// CLIENT CRUD OPERATIONS
// =====================================================

// CreateClient creates a new client and returns it with its generated ID
func (r *Repository) CreateClient(ctx context.Context, client *Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.Status == "" {
		client.Status = ClientStatusActive
	}

	query := `
		INSERT INTO clients (id, name, email, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		client.ID, client.Name, client.Email, client.Status,
	).Scan(&client.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetClient retrieves a client by ID. Returns nil if not found.
func (r *Repository) GetClient(ctx context.Context, id string) (*Client, error) {
	query := `
		SELECT id, name, email, status, created_at
		FROM clients
		WHERE id = $1
	`

	client := &Client{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&client.ID, &client.Name, &client.Email, &client.Status, &client.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// ListClients returns all clients ordered by name
func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	query := `
		SELECT id, name, email, status, created_at
		FROM clients
		ORDER BY name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}

// KnownClientIDs returns the set of all client IDs. The returns engine uses
// this to detect ledger rows referencing missing clients.
func (r *Repository) KnownClientIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("failed to list client ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan client id: %w", err)
		}
		ids[id] = struct{}{}
	}

	return ids, rows.Err()
}
