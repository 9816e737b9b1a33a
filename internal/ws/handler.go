package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP handlers for WebSocket connections.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleUpgrade upgrades an HTTP connection to WebSocket.
// Path: /ws/:symbol (e.g., /ws/AAPL)
//
// Connected clients can follow additional symbols by sending:
//   - {"action":"subscribe","symbols":["MSFT"]}
//   - {"action":"unsubscribe","symbols":["AAPL"]}
func (h *Handler) HandleUpgrade(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade error: %v", err)
		return
	}

	client := NewClient(h.hub, conn, symbol)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleStats returns WebSocket connection statistics.
func (h *Handler) HandleStats(c *gin.Context) {
	symbol := c.Param("symbol")

	if symbol != "" {
		c.JSON(http.StatusOK, gin.H{
			"symbol":      symbol,
			"connections": h.hub.ClientCount(symbol),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.hub.TotalClientCount(),
		"symbols":           h.hub.Symbols(),
	})
}

// HandleHealth returns WebSocket hub health status.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"total_clients": h.hub.TotalClientCount(),
	})
}
