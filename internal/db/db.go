package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the ledger schema. The session table is a single-row
// singleton; the seed row is inserted here so every session transition is a
// conditional update on an existing row.
func (db *DB) RunMigrations(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS player_data (
			player_id BIGINT PRIMARY KEY,
			player_name TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			net_gain BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS debt_history (
			debt_type TEXT NOT NULL,
			recipient_id BIGINT NOT NULL,
			payer_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_debt_history_date ON debt_history(date)`,
		`CREATE TABLE IF NOT EXISTS session (
			singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			is_session BOOLEAN NOT NULL DEFAULT FALSE,
			session_start TIMESTAMPTZ,
			bank_id BIGINT
		)`,
		`INSERT INTO session (singleton) VALUES (TRUE) ON CONFLICT DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
