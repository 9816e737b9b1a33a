package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"matchbook/internal/models"
	"matchbook/internal/store"
)

func journalConsumer(t *testing.T) (*Consumer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &Consumer{pg: store.NewPostgresStoreWithDB(db)}, mock
}

func TestConsumer_JournalOrderAccepted(t *testing.T) {
	c, mock := journalConsumer(t)

	order := models.NewOrder(3, "AAPL", models.Buy, models.GoodTillCancel, 100, 10)
	body, _ := json.Marshal(order)

	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := c.journal(context.Background(), RouteOrderAccepted, body); err != nil {
		t.Fatalf("journal failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConsumer_JournalOrderCancelled(t *testing.T) {
	c, mock := journalConsumer(t)

	order := models.NewOrder(9, "AAPL", models.Sell, models.GoodTillCancel, 100, 10)
	order.Fill(4)
	body, _ := json.Marshal(order)

	mock.ExpectExec(`UPDATE orders`).
		WithArgs(int64(6), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := c.journal(context.Background(), RouteOrderCancelled, body); err != nil {
		t.Fatalf("journal failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConsumer_JournalTradeExecuted(t *testing.T) {
	c, mock := journalConsumer(t)

	trade := models.Trade{
		Symbol:    "AAPL",
		Bid:       models.TradeFill{OrderID: 1, Price: 101, Quantity: 5},
		Ask:       models.TradeFill{OrderID: 2, Price: 100, Quantity: 5},
		CreatedAt: time.Now(),
	}
	body, _ := json.Marshal(trade)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO trades`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WithArgs(int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := c.journal(context.Background(), RouteTradeExecuted, body); err != nil {
		t.Fatalf("journal failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConsumer_JournalUnknownKeyIsDropped(t *testing.T) {
	c, mock := journalConsumer(t)

	if err := c.journal(context.Background(), "no.such.key", []byte(`{}`)); err != nil {
		t.Fatalf("Expected unknown routing keys to be dropped, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
