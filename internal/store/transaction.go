package store

import (
	"context"
	"database/sql"
	"fmt"

	"matchbook/internal/models"
)

type TxFunc func(ctx context.Context, tx *sql.Tx) error

func (s *PostgresStore) WithTransaction(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SaveTradeTx journals a trade and the updated remaining quantities of both
// orders in one transaction.
func (s *PostgresStore) SaveTradeTx(ctx context.Context, tx *sql.Tx, t *models.Trade) error {
	query := `
		INSERT INTO trades (symbol, bid_order_id, bid_price, ask_order_id, ask_price, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	if _, err := tx.ExecContext(ctx, query,
		t.Symbol,
		int64(t.Bid.OrderID),
		t.Bid.Price,
		int64(t.Ask.OrderID),
		t.Ask.Price,
		int64(t.Quantity()),
		t.CreatedAt,
	); err != nil {
		return err
	}

	reduce := `
		UPDATE orders
		SET remaining_qty = GREATEST(remaining_qty - $1, 0)
		WHERE id = $2
	`
	if _, err := tx.ExecContext(ctx, reduce, int64(t.Quantity()), int64(t.Bid.OrderID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, reduce, int64(t.Quantity()), int64(t.Ask.OrderID)); err != nil {
		return err
	}
	return nil
}
