package engine

import (
	"sync"

	"matchbook/internal/models"
)

// Manager owns one Book per symbol and serializes access to each of them.
//
// THREAD SAFETY:
//   - Book itself is not safe for concurrent use; the manager wraps every
//     book with its own mutex, so one mutation is in flight per symbol while
//     different symbols proceed in parallel.
//   - The symbol map is guarded by a separate read-write mutex.
type Manager struct {
	mu    sync.RWMutex
	books map[string]*bookHandle

	// Callbacks for publishing events (optional)
	onTrade  func(symbol string, trade *models.Trade)
	onOrder  func(symbol string, order *models.Order)
	onCancel func(symbol string, order *models.Order)
}

// bookHandle pairs a book with the mutex that serializes its mutations.
type bookHandle struct {
	mu   sync.Mutex
	book *Book
}

// CancelResult reports the outcome of a cancel request.
type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	OrderID   uint64 `json:"order_id"`
	Remaining uint64 `json:"remaining_quantity"`
}

func NewManager() *Manager {
	return &Manager{
		books: make(map[string]*bookHandle),
	}
}

// handle returns the book for a symbol, creating it on first use.
func (m *Manager) handle(symbol string) *bookHandle {
	m.mu.RLock()
	h, exists := m.books[symbol]
	m.mu.RUnlock()

	if exists {
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check again after acquiring write lock
	if h, exists = m.books[symbol]; exists {
		return h
	}

	h = &bookHandle{book: NewBook()}
	m.books[symbol] = h
	return h
}

// lookup returns the book handle without creating one.
func (m *Manager) lookup(symbol string) *bookHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[symbol]
}

// AddOrder submits an order to the symbol's book and returns its trades.
func (m *Manager) AddOrder(symbol string, order *models.Order) []models.Trade {
	h := m.handle(symbol)

	h.mu.Lock()
	trades := h.book.AddOrder(order)
	// The book refuses duplicate ids and uncrossable immediate-or-cancel
	// orders without touching them: such an order never filled and never
	// rested, so no order event goes out for it. Resting is checked by
	// pointer identity because a duplicate id resolves to the prior order.
	accepted := order.Filled() > 0 || h.book.GetOrder(order.ID) == order
	h.mu.Unlock()

	if accepted && m.onOrder != nil {
		m.onOrder(symbol, order)
	}
	if m.onTrade != nil {
		for i := range trades {
			m.onTrade(symbol, &trades[i])
		}
	}
	return trades
}

// CancelOrder cancels an order on the symbol's book. Unknown symbols and
// ids are a no-op, reported through the result rather than an error.
func (m *Manager) CancelOrder(symbol string, id uint64) *CancelResult {
	h := m.lookup(symbol)
	if h == nil {
		return &CancelResult{Cancelled: false, OrderID: id}
	}

	h.mu.Lock()
	order := h.book.GetOrder(id)
	if order == nil {
		h.mu.Unlock()
		return &CancelResult{Cancelled: false, OrderID: id}
	}

	remaining := order.Remaining
	h.book.CancelOrder(id)
	h.mu.Unlock()

	if m.onCancel != nil {
		m.onCancel(symbol, order)
	}
	return &CancelResult{Cancelled: true, OrderID: id, Remaining: remaining}
}

// ModifyOrder replaces an order's side, price and quantity, keeping its id
// and type. Returns the trades produced by the resubmission.
func (m *Manager) ModifyOrder(symbol string, id uint64, side models.Side, price int64, quantity uint64) []models.Trade {
	h := m.lookup(symbol)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	trades := h.book.ModifyOrder(id, side, price, quantity)
	h.mu.Unlock()

	if m.onTrade != nil {
		for i := range trades {
			m.onTrade(symbol, &trades[i])
		}
	}
	return trades
}

// GetOrder retrieves a live order from the symbol's book.
func (m *Manager) GetOrder(symbol string, id uint64) *models.Order {
	h := m.lookup(symbol)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book.GetOrder(id)
}

// BestBid returns the best bid price for a symbol.
func (m *Manager) BestBid(symbol string) (int64, bool) {
	h := m.lookup(symbol)
	if h == nil {
		return 0, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	price, _, ok := h.book.BestBid()
	return price, ok
}

// BestAsk returns the best ask price for a symbol.
func (m *Manager) BestAsk(symbol string) (int64, bool) {
	h := m.lookup(symbol)
	if h == nil {
		return 0, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	price, _, ok := h.book.BestAsk()
	return price, ok
}

// Depth returns up to levels price levels per side for a symbol; levels <= 0
// means the full book.
func (m *Manager) Depth(symbol string, levels int) (bids, asks []Level) {
	h := m.lookup(symbol)
	if h == nil {
		return nil, nil
	}

	h.mu.Lock()
	bids, asks = h.book.Depth()
	h.mu.Unlock()

	if levels > 0 {
		if len(bids) > levels {
			bids = bids[:levels]
		}
		if len(asks) > levels {
			asks = asks[:levels]
		}
	}
	return bids, asks
}

// Size returns the number of live resting orders for a symbol.
func (m *Manager) Size(symbol string) int {
	h := m.lookup(symbol)
	if h == nil {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book.Size()
}

// ListSymbols returns all symbols with active books.
func (m *Manager) ListSymbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.books))
	for symbol := range m.books {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// BookCount returns the number of active books.
func (m *Manager) BookCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// SetTradeCallback sets the callback invoked once per executed trade.
func (m *Manager) SetTradeCallback(cb func(symbol string, trade *models.Trade)) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTrade = cb
	return m
}

// SetOrderCallback sets the callback invoked for every accepted order.
// Rejected submissions (duplicate id, uncrossable immediate-or-cancel) do
// not fire it.
func (m *Manager) SetOrderCallback(cb func(symbol string, order *models.Order)) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOrder = cb
	return m
}

// SetCancelCallback sets the callback invoked after an order is cancelled
// through the manager. The order carries the remaining quantity it held at
// cancellation.
func (m *Manager) SetCancelCallback(cb func(symbol string, order *models.Order)) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCancel = cb
	return m
}
