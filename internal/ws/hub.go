package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"matchbook/internal/cache"
	"matchbook/internal/engine"
	"matchbook/internal/metrics"
	"matchbook/internal/models"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Clients are grouped by the symbol they connected for; additional symbols
// are handled through the subscription manager.
type Hub struct {
	// Registered clients by symbol (e.g., "AAPL", "MSFT")
	clients map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast message to all clients
	broadcast chan []byte

	// Subscription manager for per-symbol subscriptions
	subscriptions *SubscriptionManager

	// Book manager for snapshot data
	books *engine.Manager

	// Redis cache for recent trades
	redisCache *cache.RedisCache

	// Heartbeat sequence number
	heartbeatSeq int64

	heartbeatTicker *time.Ticker

	// Stop channel for graceful shutdown
	stop chan struct{}

	cfg     *HubConfig
	metrics *metrics.Metrics

	mu sync.RWMutex
}

// HubConfig holds configuration for the hub.
type HubConfig struct {
	HeartbeatInterval time.Duration // Heartbeat interval (default: 30s)
	SnapshotLevels    int           // Number of price levels in snapshot (default: 20)
	RecentTradesLimit int64         // Number of recent trades in snapshot (default: 50)
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		HeartbeatInterval: 30 * time.Second,
		SnapshotLevels:    20,
		RecentTradesLimit: 50,
	}
}

// NewHub creates a new Hub instance.
func NewHub(cfg *HubConfig, books *engine.Manager, redisCache *cache.RedisCache) *Hub {
	if cfg == nil {
		cfg = DefaultHubConfig()
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.SnapshotLevels == 0 {
		cfg.SnapshotLevels = 20
	}
	if cfg.RecentTradesLimit == 0 {
		cfg.RecentTradesLimit = 50
	}

	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan []byte, 256),
		subscriptions:   NewSubscriptionManager(),
		books:           books,
		redisCache:      redisCache,
		heartbeatTicker: time.NewTicker(cfg.HeartbeatInterval),
		stop:            make(chan struct{}),
		cfg:             cfg,
	}
}

// SetMetrics attaches the metrics sink. Optional.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// Run starts the hub's main event loop with heartbeat.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.heartbeatTicker.Stop()
			log.Println("📡 WebSocket hub stopped")
			return

		case <-h.heartbeatTicker.C:
			h.mu.Lock()
			h.heartbeatSeq++
			seq := h.heartbeatSeq
			h.mu.Unlock()
			h.BroadcastHeartbeat(seq)

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.symbol] == nil {
				h.clients[client.symbol] = make(map[*Client]bool)
			}
			h.clients[client.symbol][client] = true
			log.Printf("📱 WS client registered for %s (total: %d)", client.symbol, len(h.clients[client.symbol]))
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.RecordWSConnect()
			}

			// Send initial snapshot to new client
			go h.SendSnapshot(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.symbol]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					log.Printf("📱 WS client unregistered for %s", client.symbol)
					if h.metrics != nil {
						h.metrics.RecordWSDisconnect()
					}
				}
				if len(clients) == 0 {
					delete(h.clients, client.symbol)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Stop gracefully stops the hub.
func (h *Hub) Stop() {
	close(h.stop)
}

// SendSnapshot sends an order book snapshot to a client.
func (h *Hub) SendSnapshot(client *Client) {
	if client == nil || h.books == nil {
		return
	}

	symbol := client.symbol
	bids, asks := h.books.Depth(symbol, h.cfg.SnapshotLevels)

	var trades []models.Trade
	if h.redisCache != nil {
		trades, _ = h.redisCache.GetRecentTrades(context.Background(), symbol, h.cfg.RecentTradesLimit)
	}

	h.mu.RLock()
	seq := h.heartbeatSeq
	h.mu.RUnlock()

	snapshot := NewSnapshotEvent(symbol, bids, asks, trades, seq)
	data, _ := json.Marshal(snapshot)

	select {
	case client.send <- data:
		log.Printf("📱 Sent snapshot to client %s for %s", client.id, symbol)
	default:
		log.Printf("⚠️ Failed to send snapshot to client %s, buffer full", client.id)
	}
}

// broadcastToAll sends a message to all connected clients.
func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for symbol, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- message:
			default:
				// Client's send buffer is full, skip this message
				log.Printf("⚠️ WS client send buffer full for %s, skipping", symbol)
			}
		}
	}
}

// BroadcastToSymbol sends a message to clients connected for a symbol,
// plus clients that subscribed to it over an existing connection.
func (h *Hub) BroadcastToSymbol(symbol string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sym, clients := range h.clients {
		for client := range clients {
			if sym != symbol && !h.subscriptions.IsSubscribed(client.id, symbol) {
				continue
			}
			select {
			case client.send <- message:
			default:
				log.Printf("⚠️ WS client send buffer full for %s, skipping", symbol)
			}
		}
	}
}

// BroadcastTrade sends a trade event to clients following a symbol.
func (h *Hub) BroadcastTrade(symbol string, trade *models.Trade) {
	event := NewTradeEvent(symbol, trade)
	data, _ := json.Marshal(event)
	h.BroadcastToSymbol(symbol, data)
	if h.metrics != nil {
		h.metrics.RecordWSSent(symbol, "trade")
	}
}

// BroadcastOrderUpdate sends an order lifecycle event to clients following a symbol.
func (h *Hub) BroadcastOrderUpdate(symbol string, orderID uint64, status string, remaining uint64) {
	event := NewOrderUpdateEvent(symbol, orderID, status, remaining)
	data, _ := json.Marshal(event)
	h.BroadcastToSymbol(symbol, data)
	if h.metrics != nil {
		h.metrics.RecordWSSent(symbol, "order")
	}
}

// BroadcastBook sends a depth update to clients following a symbol.
func (h *Hub) BroadcastBook(symbol string, bids, asks []engine.Level) {
	event := NewBookEvent(symbol, bids, asks)
	data, _ := json.Marshal(event)
	h.BroadcastToSymbol(symbol, data)
	if h.metrics != nil {
		h.metrics.RecordWSSent(symbol, "book")
	}
}

// BroadcastHeartbeat sends a heartbeat to all connected clients.
func (h *Hub) BroadcastHeartbeat(sequence int64) {
	event := NewHeartbeatEvent(sequence)
	data, _ := json.Marshal(event)
	h.broadcastToAll(data)
}

// Register registers a client for a symbol.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client.
func (h *Hub) Unregister(client *Client) {
	h.subscriptions.UnsubscribeAll(client.ID())
	h.unregister <- client
}

// Broadcast sends a raw message to all clients.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// ClientCount returns the number of connected clients for a symbol.
func (h *Hub) ClientCount(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[symbol]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the total number of connected clients.
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// Symbols returns the symbols with connected clients.
func (h *Hub) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	symbols := make([]string, 0, len(h.clients))
	for symbol := range h.clients {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Subscriptions returns the subscription manager.
func (h *Hub) Subscriptions() *SubscriptionManager {
	return h.subscriptions
}
