package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	// Parse connection string
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	// Create connection pool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		// Create clients table
		`CREATE TABLE IF NOT EXISTS clients (
			id UUID PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			email VARCHAR(200) NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_status ON clients(status)`,

		// Create investment_transactions table (the ledger).
		// Cancellation is a soft delete: status flips to 'cancelled' and the
		// row is kept for the audit trail.
		`CREATE TABLE IF NOT EXISTS investment_transactions (
			id UUID PRIMARY KEY,
			client_id UUID NOT NULL,
			amount DECIMAL(20, 2) NOT NULL CHECK (amount > 0),
			kind VARCHAR(12) NOT NULL CHECK (kind IN ('deposit', 'withdrawal')),
			transaction_date TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			cancelled_at TIMESTAMP,
			cancelled_by VARCHAR(200),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_client ON investment_transactions(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON investment_transactions(transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON investment_transactions(status)`,

		// Create transaction_edits table (amount change history)
		`CREATE TABLE IF NOT EXISTS transaction_edits (
			id UUID PRIMARY KEY,
			transaction_id UUID NOT NULL REFERENCES investment_transactions(id) ON DELETE CASCADE,
			previous_amount DECIMAL(20, 2) NOT NULL,
			new_amount DECIMAL(20, 2) NOT NULL,
			edited_by VARCHAR(200) NOT NULL,
			reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_edits_transaction ON transaction_edits(transaction_id)`,

		// Create platform_allocations table
		`CREATE TABLE IF NOT EXISTS platform_allocations (
			id UUID PRIMARY KEY,
			platform_name VARCHAR(200) NOT NULL,
			principal_amount DECIMAL(20, 2) NOT NULL,
			allocation_date TIMESTAMP NOT NULL,
			return_percentage DECIMAL(10, 2) NOT NULL DEFAULT 0,
			current_value DECIMAL(20, 2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_platform_allocations_status ON platform_allocations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_platform_allocations_date ON platform_allocations(allocation_date)`,

		// Create weekly_snapshots table. The unique key on
		// (platform_id, week_start_date) is the backstop that keeps
		// interpolation idempotent.
		`CREATE TABLE IF NOT EXISTS weekly_snapshots (
			id UUID PRIMARY KEY,
			platform_id UUID NOT NULL REFERENCES platform_allocations(id) ON DELETE CASCADE,
			week_start_date DATE NOT NULL,
			week_end_date DATE NOT NULL,
			week_number INT NOT NULL,
			year INT NOT NULL,
			opening_value DECIMAL(20, 2) NOT NULL,
			closing_value DECIMAL(20, 2) NOT NULL,
			weekly_return_pct DECIMAL(10, 2) NOT NULL DEFAULT 0,
			profit_amount DECIMAL(20, 2) NOT NULL DEFAULT 0,
			is_interpolated BOOLEAN NOT NULL DEFAULT FALSE,
			entered_by VARCHAR(200),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (platform_id, week_start_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_snapshots_platform ON weekly_snapshots(platform_id)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_snapshots_week_start ON weekly_snapshots(week_start_date)`,

		// Create monthly_returns table (one row per calendar month)
		`CREATE TABLE IF NOT EXISTS monthly_returns (
			id UUID PRIMARY KEY,
			month DATE NOT NULL UNIQUE,
			total_corpus DECIMAL(20, 2) NOT NULL,
			total_platform_value DECIMAL(20, 2) NOT NULL,
			monthly_return_percentage DECIMAL(10, 2) NOT NULL,
			calculated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_returns_month ON monthly_returns(month)`,

		// Create monthly_client_returns table (per-client allocation rows,
		// replaced wholesale with the parent)
		`CREATE TABLE IF NOT EXISTS monthly_client_returns (
			id UUID PRIMARY KEY,
			monthly_return_id UUID NOT NULL REFERENCES monthly_returns(id) ON DELETE CASCADE,
			client_id UUID NOT NULL,
			investment_share DECIMAL(20, 2) NOT NULL,
			share_percentage DECIMAL(10, 2) NOT NULL,
			return_amount DECIMAL(20, 8) NOT NULL,
			closing_balance DECIMAL(20, 8) NOT NULL,
			position INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_client_returns_parent ON monthly_client_returns(monthly_return_id)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_client_returns_client ON monthly_client_returns(client_id)`,

		// Create monthly_platform_returns table
		`CREATE TABLE IF NOT EXISTS monthly_platform_returns (
			id UUID PRIMARY KEY,
			monthly_return_id UUID NOT NULL REFERENCES monthly_returns(id) ON DELETE CASCADE,
			platform_id UUID NOT NULL,
			platform_name VARCHAR(200) NOT NULL,
			return_percentage DECIMAL(10, 2) NOT NULL,
			return_amount DECIMAL(20, 8) NOT NULL,
			position INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_platform_returns_parent ON monthly_platform_returns(monthly_return_id)`,

		// Create updated_at trigger function
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql'`,

		// Create triggers for updated_at
		`DROP TRIGGER IF EXISTS update_transactions_updated_at ON investment_transactions`,
		`CREATE TRIGGER update_transactions_updated_at BEFORE UPDATE ON investment_transactions
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_platform_allocations_updated_at ON platform_allocations`,
		`CREATE TRIGGER update_platform_allocations_updated_at BEFORE UPDATE ON platform_allocations
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
	}

	// Execute migrations
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
