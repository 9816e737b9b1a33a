package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchbook/internal/cache"
	"matchbook/internal/engine"
	"matchbook/internal/metrics"
	"matchbook/internal/middleware"
	"matchbook/internal/store"
	"matchbook/internal/ws"
)

func RegisterRoutes(r *gin.Engine, books *engine.Manager, redisCache *cache.RedisCache, pgStore *store.PostgresStore, wsHub *ws.Hub, symbolStore *store.SymbolStore, m *metrics.Metrics) {
	authMiddleware := middleware.NewAuthMiddleware(middleware.DefaultAuthConfig())
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())

	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(metricsMiddleware(m))

	h := NewHandler(books, redisCache, pgStore, wsHub, m)
	symbolHandler := NewSymbolHandler(symbolStore)
	adminHandler := NewAdminHandler(books, wsHub, redisCache, m)
	adminHandler.RegisterRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/symbols", symbolHandler.ListSymbols)
		api.GET("/symbols/:symbol", symbolHandler.GetSymbol)
		api.GET("/symbols/:symbol/book", h.GetOrderBook)
		api.GET("/symbols/:symbol/ticker", h.GetTicker)
		api.GET("/symbols/:symbol/trades", h.GetRecentTrades)
		api.GET("/books", h.ListActiveBooks)

		protected := api.Group("")
		protected.Use(authMiddleware.GinMiddleware())
		protected.Use(rateLimiter.GinMiddleware())
		{
			protected.POST("/orders", h.PlaceOrder)
			protected.GET("/orders/:id", h.GetOrder)
			protected.PUT("/orders/:id", h.ModifyOrder)
			protected.DELETE("/orders/:id", h.CancelOrder)
			protected.POST("/symbols", symbolHandler.CreateSymbol)
		}
	}

	if wsHub != nil {
		wsHandler := ws.NewHandler(wsHub)
		r.GET("/ws/:symbol", wsHandler.HandleUpgrade)
		r.GET("/ws-stats", wsHandler.HandleStats)
	}
}

// metricsMiddleware records request counts and latency per route.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
