package api

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"matchbook/internal/cache"
	"matchbook/internal/engine"
	"matchbook/internal/metrics"
	"matchbook/internal/models"
	"matchbook/internal/store"
	"matchbook/internal/ws"
)

// Handler serves the order entry and market data endpoints.
//
// Order ids are assigned server-side from a monotonic counter, so clients
// never pick ids and the book's duplicate-id rejection only guards the
// engine boundary.
type Handler struct {
	books   *engine.Manager
	cache   *cache.RedisCache
	journal *store.PostgresStore
	wsHub   *ws.Hub
	metrics *metrics.Metrics

	nextOrderID atomic.Uint64
}

func NewHandler(books *engine.Manager, redisCache *cache.RedisCache, journal *store.PostgresStore, wsHub *ws.Hub, m *metrics.Metrics) *Handler {
	return &Handler{
		books:   books,
		cache:   redisCache,
		journal: journal,
		wsHub:   wsHub,
		metrics: m,
	}
}

// PlaceOrderRequest is the order entry payload.
type PlaceOrderRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required,oneof=buy sell"`
	Type     string `json:"type" binding:"omitempty,oneof=gtc ioc"`
	Price    int64  `json:"price" binding:"required,gt=0"`
	Quantity uint64 `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderResponse reports the submitted order's immediate outcome.
type PlaceOrderResponse struct {
	Order  *models.Order  `json:"order"`
	Trades []models.Trade `json:"trades"`
	Status string         `json:"status"`
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordOrderRejected("bad_request")
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	typ := models.OrderType(req.Type)
	if typ == "" {
		typ = models.GoodTillCancel
	}

	order := models.NewOrder(h.nextOrderID.Add(1), req.Symbol, models.Side(req.Side), typ, req.Price, req.Quantity)
	if err := order.Validate(); err != nil {
		h.metrics.RecordOrderRejected("validation")
		AbortWithError(c, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	trades := h.books.AddOrder(req.Symbol, order)
	resting := h.books.GetOrder(req.Symbol, order.ID) != nil

	status := orderStatus(order, resting, trades)
	if status == "rejected" {
		h.metrics.RecordOrderRejected("no_cross")
	} else {
		h.metrics.RecordOrderAccepted(req.Symbol, h.books.Size(req.Symbol))
	}

	h.refreshMarketData(c.Request.Context(), req.Symbol)

	if h.wsHub != nil {
		h.wsHub.BroadcastOrderUpdate(req.Symbol, order.ID, status, order.Remaining)
	}

	c.JSON(http.StatusOK, PlaceOrderResponse{
		Order:  order,
		Trades: trades,
		Status: status,
	})
}

// CancelOrder handles DELETE /api/orders/:id?symbol=SYM.
func (h *Handler) CancelOrder(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "symbol query parameter is required")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid order id")
		return
	}

	result := h.books.CancelOrder(symbol, orderID)
	if !result.Cancelled {
		AbortWithError(c, http.StatusNotFound, ErrCodeOrderNotFound, "order not found")
		return
	}

	h.metrics.RecordOrderCancelled(symbol, h.books.Size(symbol))
	h.refreshMarketData(c.Request.Context(), symbol)

	if h.wsHub != nil {
		h.wsHub.BroadcastOrderUpdate(symbol, orderID, "cancelled", result.Remaining)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "order cancelled",
		"order_id":           orderID,
		"symbol":             symbol,
		"remaining_quantity": result.Remaining,
	})
}

// ModifyOrderRequest is the order replacement payload.
type ModifyOrderRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required,oneof=buy sell"`
	Price    int64  `json:"price" binding:"required,gt=0"`
	Quantity uint64 `json:"quantity" binding:"required,gt=0"`
}

// ModifyOrder handles PUT /api/orders/:id. The order keeps its id and
// lifetime policy, takes the new side, price and quantity, and loses its
// queue position.
func (h *Handler) ModifyOrder(c *gin.Context) {
	var req ModifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid order id")
		return
	}

	if h.books.GetOrder(req.Symbol, orderID) == nil {
		AbortWithError(c, http.StatusNotFound, ErrCodeOrderNotFound, "order not found")
		return
	}

	trades := h.books.ModifyOrder(req.Symbol, orderID, models.Side(req.Side), req.Price, req.Quantity)
	order := h.books.GetOrder(req.Symbol, orderID)
	h.metrics.RecordOrderModified()

	status := "open"
	if order == nil {
		status = "done"
	}

	h.refreshMarketData(c.Request.Context(), req.Symbol)

	if h.wsHub != nil {
		remaining := uint64(0)
		if order != nil {
			remaining = order.Remaining
		}
		h.wsHub.BroadcastOrderUpdate(req.Symbol, orderID, status, remaining)
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"symbol":   req.Symbol,
		"status":   status,
		"trades":   trades,
	})
}

// GetOrder handles GET /api/orders/:id?symbol=SYM. Only live resting orders
// are visible here; filled and cancelled orders live in the journal.
func (h *Handler) GetOrder(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "symbol query parameter is required")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid order id")
		return
	}

	order := h.books.GetOrder(symbol, orderID)
	if order == nil {
		AbortWithError(c, http.StatusNotFound, ErrCodeOrderNotFound, "order not found")
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderBook handles GET /api/symbols/:symbol/book?levels=N.
func (h *Handler) GetOrderBook(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "symbol is required")
		return
	}

	levels := 10
	if levelsStr := c.Query("levels"); levelsStr != "" {
		if l, err := strconv.Atoi(levelsStr); err == nil && l > 0 && l <= 100 {
			levels = l
		}
	}

	if h.cache != nil {
		if snap, err := h.cache.GetDepth(c.Request.Context(), symbol); err == nil && snap != nil {
			h.metrics.RecordCacheHit()
			bids, asks := snap.Bids, snap.Asks
			if len(bids) > levels {
				bids = bids[:levels]
			}
			if len(asks) > levels {
				asks = asks[:levels]
			}
			c.JSON(http.StatusOK, gin.H{"symbol": symbol, "bids": bids, "asks": asks, "cached": true})
			return
		}
		h.metrics.RecordCacheMiss()
	}

	bids, asks := h.books.Depth(symbol, levels)
	h.metrics.RecordDepth(symbol, len(bids), len(asks))

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"bids":   bids,
		"asks":   asks,
	})
}

// GetTicker handles GET /api/symbols/:symbol/ticker.
func (h *Handler) GetTicker(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "symbol is required")
		return
	}

	if h.cache != nil {
		if t, err := h.cache.GetTicker(c.Request.Context(), symbol); err == nil && t != nil {
			h.metrics.RecordCacheHit()
			c.JSON(http.StatusOK, t)
			return
		}
		h.metrics.RecordCacheMiss()
	}

	t := h.buildTicker(symbol)
	if h.cache != nil {
		h.cache.SetTicker(c.Request.Context(), t)
	}
	c.JSON(http.StatusOK, t)
}

// GetRecentTrades handles GET /api/symbols/:symbol/trades?limit=N.
func (h *Handler) GetRecentTrades(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "symbol is required")
		return
	}

	limit := int64(50)
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.ParseInt(limitStr, 10, 64); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	var trades []models.Trade
	if h.cache != nil {
		trades, _ = h.cache.GetRecentTrades(c.Request.Context(), symbol, limit)
	}

	// The cache only holds the hot tail of the feed; fall back to the
	// journal when it has nothing for this symbol.
	if len(trades) == 0 && h.journal != nil {
		rows, err := h.journal.RecentTrades(c.Request.Context(), symbol, int(limit))
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to load trades")
			return
		}
		for _, t := range rows {
			trades = append(trades, *t)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"trades": trades,
		"count":  len(trades),
	})
}

// ListActiveBooks handles GET /api/books.
func (h *Handler) ListActiveBooks(c *gin.Context) {
	symbols := h.books.ListSymbols()
	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// buildTicker computes the top of book from the live book.
func (h *Handler) buildTicker(symbol string) *cache.Ticker {
	bids, asks := h.books.Depth(symbol, 1)

	t := &cache.Ticker{Symbol: symbol, Timestamp: time.Now()}
	if len(bids) > 0 {
		t.BidPrice = bids[0].Price
		t.BidQty = bids[0].Quantity
	}
	if len(asks) > 0 {
		t.AskPrice = asks[0].Price
		t.AskQty = asks[0].Quantity
	}
	return t
}

// refreshMarketData re-caches the ticker and depth snapshot after a book
// mutation and pushes the new depth to websocket followers. Cache failures
// are dropped; the cache is read-through on misses.
func (h *Handler) refreshMarketData(ctx context.Context, symbol string) {
	bids, asks := h.books.Depth(symbol, 20)

	if h.cache != nil {
		h.cache.SetTicker(ctx, h.buildTicker(symbol))
		h.cache.SetDepth(ctx, symbol, bids, asks)
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastBook(symbol, bids, asks)
	}
}

// orderStatus derives the submit outcome from the order's state after the
// book has processed it.
func orderStatus(order *models.Order, resting bool, trades []models.Trade) string {
	switch {
	case order.IsFilled():
		return "filled"
	case resting:
		if order.Filled() > 0 {
			return "partially_filled"
		}
		return "open"
	case len(trades) > 0 || order.Filled() > 0:
		// Immediate-or-cancel leftover purged after matching
		return "cancelled"
	default:
		return "rejected"
	}
}
