package ws

import (
	"log"
	"sync"
)

// SubscriptionManager tracks which symbols each WebSocket client follows.
// A client's primary symbol comes from its connect path; further symbols
// are managed with subscribe/unsubscribe messages.
type SubscriptionManager struct {
	// Map of client ID -> set of subscribed symbols
	clientSubscriptions map[string]map[string]bool

	// Map of symbol -> set of subscribed client IDs
	symbolSubscriptions map[string]map[string]bool

	mu sync.RWMutex
}

// NewSubscriptionManager creates a new subscription manager.
func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		clientSubscriptions: make(map[string]map[string]bool),
		symbolSubscriptions: make(map[string]map[string]bool),
	}
}

// Subscribe adds a subscription for a client to a symbol.
func (s *SubscriptionManager) Subscribe(clientID, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientSubscriptions[clientID] == nil {
		s.clientSubscriptions[clientID] = make(map[string]bool)
	}
	s.clientSubscriptions[clientID][symbol] = true

	if s.symbolSubscriptions[symbol] == nil {
		s.symbolSubscriptions[symbol] = make(map[string]bool)
	}
	s.symbolSubscriptions[symbol][clientID] = true

	log.Printf("📱 Client %s subscribed to %s", clientID, symbol)
}

// Unsubscribe removes a subscription for a client from a symbol.
func (s *SubscriptionManager) Unsubscribe(clientID, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbols, ok := s.clientSubscriptions[clientID]; ok {
		delete(symbols, symbol)
		if len(symbols) == 0 {
			delete(s.clientSubscriptions, clientID)
		}
	}

	if clients, ok := s.symbolSubscriptions[symbol]; ok {
		delete(clients, clientID)
		if len(clients) == 0 {
			delete(s.symbolSubscriptions, symbol)
		}
	}
}

// UnsubscribeAll removes every subscription held by a client.
func (s *SubscriptionManager) UnsubscribeAll(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol := range s.clientSubscriptions[clientID] {
		if clients, ok := s.symbolSubscriptions[symbol]; ok {
			delete(clients, clientID)
			if len(clients) == 0 {
				delete(s.symbolSubscriptions, symbol)
			}
		}
	}
	delete(s.clientSubscriptions, clientID)
}

// Subscribers returns the client IDs subscribed to a symbol.
func (s *SubscriptionManager) Subscribers(symbol string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]string, 0, len(s.symbolSubscriptions[symbol]))
	for id := range s.symbolSubscriptions[symbol] {
		clients = append(clients, id)
	}
	return clients
}

// IsSubscribed reports whether a client follows a symbol.
func (s *SubscriptionManager) IsSubscribed(clientID, symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientSubscriptions[clientID][symbol]
}

// ClientCount returns the number of clients with at least one subscription.
func (s *SubscriptionManager) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clientSubscriptions)
}
