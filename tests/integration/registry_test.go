package integration

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/api"
	"matchbook/internal/engine"
	"matchbook/internal/models"
	"matchbook/internal/store"
)

// setupStoreBackedRouter wires the router against a mocked database, so the
// registry and journal paths are exercised without a live Postgres.
func setupStoreBackedRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	router := gin.New()
	api.RegisterRoutes(router, engine.NewManager(), nil, store.NewPostgresStoreWithDB(db), nil,
		store.NewSymbolStore(db), sharedMetrics())
	return router, mock
}

func TestGetSymbol(t *testing.T) {
	router, mock := setupStoreBackedRouter(t)

	mock.ExpectQuery(`SELECT name, tick_size FROM symbols`).
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"name", "tick_size"}).AddRow("AAPL", int64(1)))

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/AAPL", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var symbol models.Symbol
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &symbol))
	assert.Equal(t, "AAPL", symbol.Name)
	assert.Equal(t, int64(1), symbol.TickSize)
}

func TestGetSymbolNotFound(t *testing.T) {
	router, mock := setupStoreBackedRouter(t)

	mock.ExpectQuery(`SELECT name, tick_size FROM symbols`).
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/NOPE", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecentTradesJournalFallback(t *testing.T) {
	router, mock := setupStoreBackedRouter(t)

	rows := sqlmock.NewRows([]string{
		"symbol", "bid_order_id", "bid_price", "ask_order_id", "ask_price", "quantity", "created_at",
	}).AddRow("AAPL", int64(2), int64(101), int64(5), int64(100), int64(3), time.Now())

	mock.ExpectQuery(`SELECT symbol, bid_order_id, bid_price, ask_order_id, ask_price, quantity, created_at`).
		WithArgs("AAPL", 50).
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/AAPL/trades", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Symbol string         `json:"symbol"`
		Trades []models.Trade `json:"trades"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "AAPL", response.Symbol)
	require.Equal(t, 1, response.Count)
	assert.Equal(t, uint64(2), response.Trades[0].Bid.OrderID)
	assert.Equal(t, int64(101), response.Trades[0].Bid.Price)
	assert.Equal(t, uint64(3), response.Trades[0].Quantity())
}
