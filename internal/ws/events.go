package ws

import (
	"encoding/json"
	"time"

	"matchbook/internal/engine"
	"matchbook/internal/models"
)

// Event is the envelope for every message pushed to clients.
type Event struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol,omitempty"`
	Sequence  int64       `json:"sequence,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// SnapshotData carries the initial book state sent on connect.
type SnapshotData struct {
	Bids         []engine.Level `json:"bids"`
	Asks         []engine.Level `json:"asks"`
	RecentTrades []models.Trade `json:"recent_trades,omitempty"`
}

// OrderUpdateData carries an order lifecycle notification.
type OrderUpdateData struct {
	OrderID   uint64 `json:"order_id"`
	Status    string `json:"status"`
	Remaining uint64 `json:"remaining_quantity"`
}

// SubscriptionMessage is what clients send to manage their subscriptions.
type SubscriptionMessage struct {
	Action  string   `json:"action"` // "subscribe" or "unsubscribe"
	Symbols []string `json:"symbols"`
}

// SubscriptionAck acknowledges a subscription change.
type SubscriptionAck struct {
	Type    string   `json:"type"`
	Action  string   `json:"action"`
	Success bool     `json:"success"`
	Symbols []string `json:"symbols"`
	Message string   `json:"message,omitempty"`
}

func NewTradeEvent(symbol string, trade *models.Trade) *Event {
	return &Event{
		Type:      "trade",
		Symbol:    symbol,
		Timestamp: time.Now(),
		Data:      trade,
	}
}

func NewBookEvent(symbol string, bids, asks []engine.Level) *Event {
	return &Event{
		Type:      "book",
		Symbol:    symbol,
		Timestamp: time.Now(),
		Data:      SnapshotData{Bids: bids, Asks: asks},
	}
}

func NewSnapshotEvent(symbol string, bids, asks []engine.Level, trades []models.Trade, seq int64) *Event {
	return &Event{
		Type:      "snapshot",
		Symbol:    symbol,
		Sequence:  seq,
		Timestamp: time.Now(),
		Data:      SnapshotData{Bids: bids, Asks: asks, RecentTrades: trades},
	}
}

func NewOrderUpdateEvent(symbol string, orderID uint64, status string, remaining uint64) *Event {
	return &Event{
		Type:      "order",
		Symbol:    symbol,
		Timestamp: time.Now(),
		Data:      OrderUpdateData{OrderID: orderID, Status: status, Remaining: remaining},
	}
}

func NewHeartbeatEvent(sequence int64) *Event {
	return &Event{
		Type:      "heartbeat",
		Sequence:  sequence,
		Timestamp: time.Now(),
	}
}

func NewSubscriptionAck(action string, success bool, symbols []string, message string) *SubscriptionAck {
	return &SubscriptionAck{
		Type:    "subscription_ack",
		Action:  action,
		Success: success,
		Symbols: symbols,
		Message: message,
	}
}

// ToJSON marshals a payload, returning nil on failure.
func ToJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
