package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"matchbook/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an already-open connection pool. The caller
// keeps ownership of the pool's lifecycle.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveOrder journals an accepted order. The book itself is never rebuilt
// from this table; it is an audit trail.
func (s *PostgresStore) SaveOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (id, symbol, side, type, price, initial_qty, remaining_qty, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		int64(o.ID),
		o.Symbol,
		o.Side,
		o.Type,
		o.Price,
		int64(o.Initial),
		int64(o.Remaining),
		o.CreatedAt,
	)
	return err
}

// UpdateOrderRemaining records the latest remaining quantity of an order.
func (s *PostgresStore) UpdateOrderRemaining(ctx context.Context, id uint64, remaining uint64) error {
	query := `
		UPDATE orders
		SET remaining_qty = $1
		WHERE id = $2
	`
	_, err := s.db.ExecContext(ctx, query, int64(remaining), int64(id))
	return err
}

// RecentTrades returns the latest trades for a symbol, newest first.
func (s *PostgresStore) RecentTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	query := `
		SELECT symbol, bid_order_id, bid_price, ask_order_id, ask_price, quantity, created_at
		FROM trades
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var bidID, askID, qty int64
		if err := rows.Scan(&t.Symbol, &bidID, &t.Bid.Price, &askID, &t.Ask.Price, &qty, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Bid.OrderID = uint64(bidID)
		t.Ask.OrderID = uint64(askID)
		t.Bid.Quantity = uint64(qty)
		t.Ask.Quantity = uint64(qty)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetDB() *sql.DB {
	return s.db
}
