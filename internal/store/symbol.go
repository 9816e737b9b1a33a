package store

import (
	"context"
	"database/sql"
	"fmt"

	"matchbook/internal/models"
)

type SymbolStore struct {
	db *sql.DB
}

func NewSymbolStore(db *sql.DB) *SymbolStore {
	return &SymbolStore{db: db}
}

func (s *SymbolStore) Create(ctx context.Context, symbol *models.Symbol) error {
	query := `INSERT INTO symbols (name, tick_size) VALUES ($1, $2)`
	_, err := s.db.ExecContext(ctx, query, symbol.Name, symbol.TickSize)
	return err
}

func (s *SymbolStore) Get(ctx context.Context, name string) (*models.Symbol, error) {
	query := `SELECT name, tick_size FROM symbols WHERE name = $1`
	var symbol models.Symbol
	err := s.db.QueryRowContext(ctx, query, name).Scan(&symbol.Name, &symbol.TickSize)
	if err != nil {
		// sql.ErrNoRows passes through so callers can distinguish
		// "unknown symbol" from a store failure.
		return nil, err
	}
	return &symbol, nil
}

func (s *SymbolStore) List(ctx context.Context) ([]*models.Symbol, error) {
	query := `SELECT name, tick_size FROM symbols ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []*models.Symbol
	for rows.Next() {
		var symbol models.Symbol
		if err := rows.Scan(&symbol.Name, &symbol.TickSize); err != nil {
			return nil, err
		}
		symbols = append(symbols, &symbol)
	}
	return symbols, rows.Err()
}

func (s *SymbolStore) Exists(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM symbols WHERE name = $1)`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, name).Scan(&exists)
	return exists, err
}

func (s *SymbolStore) SeedDefaultSymbols(ctx context.Context, defaults []*models.Symbol) (int, error) {
	seeded := 0
	for _, sym := range defaults {
		exists, err := s.Exists(ctx, sym.Name)
		if err != nil {
			return seeded, fmt.Errorf("checking symbol %s: %w", sym.Name, err)
		}
		if !exists {
			if err := s.Create(ctx, sym); err != nil {
				return seeded, fmt.Errorf("creating symbol %s: %w", sym.Name, err)
			}
			seeded++
		}
	}
	return seeded, nil
}
