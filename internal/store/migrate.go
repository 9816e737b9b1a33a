package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are applied in order and recorded in schema_migrations.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_orders",
		SQL: `
			CREATE TABLE IF NOT EXISTS orders (
				id            BIGINT PRIMARY KEY,
				symbol        TEXT NOT NULL,
				side          TEXT NOT NULL,
				type          TEXT NOT NULL,
				price         BIGINT NOT NULL,
				initial_qty   BIGINT NOT NULL,
				remaining_qty BIGINT NOT NULL,
				created_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		Version: 2,
		Name:    "create_trades",
		SQL: `
			CREATE TABLE IF NOT EXISTS trades (
				id           BIGSERIAL PRIMARY KEY,
				symbol       TEXT NOT NULL,
				bid_order_id BIGINT NOT NULL,
				bid_price    BIGINT NOT NULL,
				ask_order_id BIGINT NOT NULL,
				ask_price    BIGINT NOT NULL,
				quantity     BIGINT NOT NULL,
				created_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_trades_symbol_created
				ON trades (symbol, created_at DESC)
		`,
	},
	{
		Version: 3,
		Name:    "create_symbols",
		SQL: `
			CREATE TABLE IF NOT EXISTS symbols (
				name      TEXT PRIMARY KEY,
				tick_size BIGINT NOT NULL DEFAULT 1
			)
		`,
	},
	{
		Version: 4,
		Name:    "create_processed_messages",
		SQL: `
			CREATE TABLE IF NOT EXISTS processed_messages (
				message_id   TEXT PRIMARY KEY,
				processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)
		`,
	},
}

type Migrator struct {
	db *sql.DB
}

func NewMigrator(dsn string) (*Migrator, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Migrator{db: db}, nil
}

func (m *Migrator) Close() error {
	return m.db.Close()
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Up applies all pending migrations and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("ensuring migrations table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading applied migrations: %w", err)
	}

	ran := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return ran, fmt.Errorf("beginning migration %d: %w", mig.Version, err)
		}
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("applying migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			mig.Version, mig.Name); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("recording migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return ran, fmt.Errorf("committing migration %d: %w", mig.Version, err)
		}
		ran++
	}
	return ran, nil
}
