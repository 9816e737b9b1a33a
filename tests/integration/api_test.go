package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/api"
	"matchbook/internal/engine"
	"matchbook/internal/metrics"
	"matchbook/internal/middleware"
	"matchbook/internal/models"
)

// Prometheus collectors register against the default registry, so the
// metrics instance is shared across tests.
var (
	metricsOnce sync.Once
	testMetrics *metrics.Metrics
)

func sharedMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		testMetrics = metrics.New()
	})
	return testMetrics
}

// setupTestRouter creates a test router without DB/Redis/MQ connections.
func setupTestRouter(tb testing.TB) (*gin.Engine, *engine.Manager) {
	gin.SetMode(gin.TestMode)

	books := engine.NewManager()
	router := gin.New()
	api.RegisterRoutes(router, books, nil, nil, nil, nil, sharedMetrics())

	return router, books
}

// authToken mints a token accepted by the router's default auth config.
func authToken(tb testing.TB) string {
	auth := middleware.NewAuthMiddleware(middleware.DefaultAuthConfig())
	token, err := auth.GenerateToken(1, "tester", "trader")
	if err != nil {
		tb.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func doJSON(tb testing.TB, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			tb.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authToken(tb))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func placeOrder(tb testing.TB, router *gin.Engine, symbol, side, typ string, price int64, qty uint64) api.PlaceOrderResponse {
	w := doJSON(tb, router, http.MethodPost, "/api/orders", api.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     typ,
		Price:    price,
		Quantity: qty,
	})
	if w.Code != http.StatusOK {
		tb.Fatalf("place order: status %d, body %s", w.Code, w.Body.String())
	}

	var resp api.PlaceOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		tb.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestPlaceOrder(t *testing.T) {
	router, books := setupTestRouter(t)

	resp := placeOrder(t, router, "AAPL", "buy", "gtc", 50000, 15)

	require.NotNil(t, resp.Order)
	assert.Equal(t, "AAPL", resp.Order.Symbol)
	assert.Equal(t, models.Buy, resp.Order.Side)
	assert.Equal(t, int64(50000), resp.Order.Price)
	assert.Equal(t, uint64(15), resp.Order.Remaining)
	assert.Equal(t, "open", resp.Status)
	assert.Empty(t, resp.Trades)

	assert.Equal(t, 1, books.Size("AAPL"))
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	router, _ := setupTestRouter(t)

	body, _ := json.Marshal(api.PlaceOrderRequest{
		Symbol: "AAPL", Side: "buy", Price: 100, Quantity: 1,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name string
		req  api.PlaceOrderRequest
	}{
		{
			name: "missing_symbol",
			req:  api.PlaceOrderRequest{Side: "buy", Price: 100, Quantity: 1},
		},
		{
			name: "zero_price",
			req:  api.PlaceOrderRequest{Symbol: "AAPL", Side: "buy", Price: 0, Quantity: 1},
		},
		{
			name: "negative_price",
			req:  api.PlaceOrderRequest{Symbol: "AAPL", Side: "buy", Price: -5, Quantity: 1},
		},
		{
			name: "zero_quantity",
			req:  api.PlaceOrderRequest{Symbol: "AAPL", Side: "buy", Price: 100, Quantity: 0},
		},
		{
			name: "invalid_side",
			req:  api.PlaceOrderRequest{Symbol: "AAPL", Side: "hold", Price: 100, Quantity: 1},
		},
		{
			name: "invalid_type",
			req:  api.PlaceOrderRequest{Symbol: "AAPL", Side: "buy", Type: "fok", Price: 100, Quantity: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/orders", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPlaceOrderMatches(t *testing.T) {
	router, books := setupTestRouter(t)

	resting := placeOrder(t, router, "AAPL", "buy", "gtc", 100, 10)
	assert.Equal(t, "open", resting.Status)

	taker := placeOrder(t, router, "AAPL", "sell", "gtc", 90, 4)
	assert.Equal(t, "filled", taker.Status)
	require.Len(t, taker.Trades, 1)
	assert.Equal(t, uint64(4), taker.Trades[0].Quantity())
	assert.Equal(t, int64(100), taker.Trades[0].Bid.Price)
	assert.Equal(t, int64(90), taker.Trades[0].Ask.Price)

	// Resting buy keeps its leftover
	assert.Equal(t, 1, books.Size("AAPL"))
	order := books.GetOrder("AAPL", resting.Order.ID)
	require.NotNil(t, order)
	assert.Equal(t, uint64(6), order.Remaining)
}

func TestPlaceImmediateOrCancelWithoutCross(t *testing.T) {
	router, books := setupTestRouter(t)

	resp := placeOrder(t, router, "AAPL", "buy", "ioc", 100, 5)
	assert.Equal(t, "rejected", resp.Status)
	assert.Empty(t, resp.Trades)
	assert.Equal(t, 0, books.Size("AAPL"))
}

func TestPlaceImmediateOrCancelLeftoverCancelled(t *testing.T) {
	router, books := setupTestRouter(t)

	placeOrder(t, router, "AAPL", "sell", "gtc", 100, 3)

	resp := placeOrder(t, router, "AAPL", "buy", "ioc", 100, 10)
	assert.Equal(t, "cancelled", resp.Status)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, uint64(3), resp.Trades[0].Quantity())

	// Leftover never rests
	assert.Equal(t, 0, books.Size("AAPL"))
}

func TestCancelOrder(t *testing.T) {
	router, books := setupTestRouter(t)

	resp := placeOrder(t, router, "AAPL", "buy", "gtc", 100, 5)

	w := doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/api/orders/%d?symbol=AAPL", resp.Order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, books.Size("AAPL"))

	// Second cancel of the same id reports not found
	w = doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/api/orders/%d?symbol=AAPL", resp.Order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrderUnknownSymbol(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodDelete, "/api/orders/42?symbol=NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModifyOrder(t *testing.T) {
	router, books := setupTestRouter(t)

	resp := placeOrder(t, router, "AAPL", "buy", "gtc", 100, 5)

	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/orders/%d", resp.Order.ID),
		api.ModifyOrderRequest{Symbol: "AAPL", Side: "buy", Price: 110, Quantity: 8})
	assert.Equal(t, http.StatusOK, w.Code)

	order := books.GetOrder("AAPL", resp.Order.ID)
	require.NotNil(t, order)
	assert.Equal(t, int64(110), order.Price)
	assert.Equal(t, uint64(8), order.Remaining)
}

func TestModifyOrderNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/orders/999",
		api.ModifyOrderRequest{Symbol: "AAPL", Side: "buy", Price: 100, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder(t *testing.T) {
	router, _ := setupTestRouter(t)

	resp := placeOrder(t, router, "AAPL", "sell", "gtc", 120, 7)

	w := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/orders/%d?symbol=AAPL", resp.Order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, resp.Order.ID, order.ID)
	assert.Equal(t, models.Sell, order.Side)
}

func TestGetOrderBook(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 0; i < 5; i++ {
		placeOrder(t, router, "AAPL", "buy", "gtc", int64(100+i), 1)
	}
	placeOrder(t, router, "AAPL", "sell", "gtc", 200, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/AAPL/book", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Symbol string         `json:"symbol"`
		Bids   []engine.Level `json:"bids"`
		Asks   []engine.Level `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, "AAPL", response.Symbol)
	require.Len(t, response.Bids, 5)
	require.Len(t, response.Asks, 1)
	// Bids descending
	assert.Equal(t, int64(104), response.Bids[0].Price)
	assert.Equal(t, int64(200), response.Asks[0].Price)
}

func TestGetOrderBookLevelsParam(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 0; i < 10; i++ {
		placeOrder(t, router, "AAPL", "buy", "gtc", int64(100+i), 1)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/AAPL/book?levels=3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response struct {
		Bids []engine.Level `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Bids, 3)
}

func TestGetTicker(t *testing.T) {
	router, _ := setupTestRouter(t)

	placeOrder(t, router, "AAPL", "buy", "gtc", 99, 2)
	placeOrder(t, router, "AAPL", "sell", "gtc", 101, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/symbols/AAPL/ticker", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var ticker struct {
		Symbol   string `json:"symbol"`
		BidPrice int64  `json:"bid_price"`
		BidQty   uint64 `json:"bid_quantity"`
		AskPrice int64  `json:"ask_price"`
		AskQty   uint64 `json:"ask_quantity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticker))
	assert.Equal(t, "AAPL", ticker.Symbol)
	assert.Equal(t, int64(99), ticker.BidPrice)
	assert.Equal(t, uint64(2), ticker.BidQty)
	assert.Equal(t, int64(101), ticker.AskPrice)
	assert.Equal(t, uint64(4), ticker.AskQty)
}

func TestListActiveBooks(t *testing.T) {
	router, _ := setupTestRouter(t)

	symbols := []string{"AAPL", "MSFT", "GOOG"}
	for _, symbol := range symbols {
		placeOrder(t, router, symbol, "buy", "gtc", 100, 1)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Symbols []string `json:"symbols"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Count)
	assert.ElementsMatch(t, symbols, response.Symbols)
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/admin/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func BenchmarkPlaceOrder(b *testing.B) {
	router, _ := setupTestRouter(b)
	token := authToken(b)

	body, _ := json.Marshal(api.PlaceOrderRequest{
		Symbol: "AAPL", Side: "buy", Price: 50000, Quantity: 1,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
