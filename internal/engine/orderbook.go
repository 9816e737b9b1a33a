package engine

import "matchbook/internal/models"

// Book is a single-symbol limit order book with price-time priority.
//
// The book carries no lock and performs no I/O: it is a pure data structure
// driven by one logical owner at a time. Callers that need concurrent
// submit/cancel/modify must serialize access externally; Manager does this
// with one mutex per symbol.
type Book struct {
	bids *ladder
	asks *ladder

	// Locator table: order id -> queue node. The node carries both the
	// order and its level, so cancel-by-id never scans a ladder.
	orders map[uint64]*orderNode
}

// Level is one aggregated price level of a depth snapshot.
type Level struct {
	Price    int64  `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

func NewBook() *Book {
	return &Book{
		bids:   newLadder(models.Buy),
		asks:   newLadder(models.Sell),
		orders: make(map[uint64]*orderNode),
	}
}

// AddOrder submits an order and returns the trades it produced.
//
// The order is silently rejected (nil, book unchanged) when its id is
// already live, or when it is immediate-or-cancel and cannot cross the
// opposite side's best price. An admitted order is inserted at the back of
// its price level's queue and matched immediately; an immediate-or-cancel
// order that still holds quantity after matching is cancelled before
// returning, so it never rests.
func (b *Book) AddOrder(order *models.Order) []models.Trade {
	if order == nil {
		return nil
	}
	if _, exists := b.orders[order.ID]; exists {
		return nil
	}
	if order.Type == models.ImmediateOrCancel && !b.canMatch(order.Side, order.Price) {
		return nil
	}

	node := b.sideLadder(order.Side).level(order.Price).append(order)
	b.orders[order.ID] = node

	trades := b.matchOrders()

	if order.Type == models.ImmediateOrCancel && !order.IsFilled() {
		b.CancelOrder(order.ID)
	}
	return trades
}

// CancelOrder removes a resting order by id. Unknown ids are a no-op.
func (b *Book) CancelOrder(id uint64) {
	node, ok := b.orders[id]
	if !ok {
		return
	}
	b.removeNode(node)
}

// ModifyOrder is cancel-then-resubmit: the order keeps its id and type but
// takes the new side, price and quantity, and loses its queue position even
// when the price is unchanged. Unknown ids are a no-op (nil).
func (b *Book) ModifyOrder(id uint64, side models.Side, price int64, quantity uint64) []models.Trade {
	node, ok := b.orders[id]
	if !ok {
		return nil
	}

	typ := node.order.Type
	symbol := node.order.Symbol
	b.removeNode(node)

	return b.AddOrder(models.NewOrder(id, symbol, side, typ, price, quantity))
}

// GetOrder returns the live order with the given id, or nil.
func (b *Book) GetOrder(id uint64) *models.Order {
	if node, ok := b.orders[id]; ok {
		return node.order
	}
	return nil
}

// Size returns the number of live resting orders.
func (b *Book) Size() int {
	return len(b.orders)
}

// BestBid returns the highest bid price and its aggregate quantity.
func (b *Book) BestBid() (int64, uint64, bool) {
	if lv := b.bids.best(); lv != nil {
		return lv.price, lv.totalQty, true
	}
	return 0, 0, false
}

// BestAsk returns the lowest ask price and its aggregate quantity.
func (b *Book) BestAsk() (int64, uint64, bool) {
	if lv := b.asks.best(); lv != nil {
		return lv.price, lv.totalQty, true
	}
	return 0, 0, false
}

// Depth returns the full depth snapshot: one entry per occupied price
// level with its aggregate remaining quantity, bids descending and asks
// ascending. Read-only.
func (b *Book) Depth() (bids, asks []Level) {
	bids = make([]Level, 0, b.bids.depth())
	b.bids.each(func(lv *priceLevel) {
		bids = append(bids, Level{Price: lv.price, Quantity: lv.totalQty, Orders: lv.count})
	})

	asks = make([]Level, 0, b.asks.depth())
	b.asks.each(func(lv *priceLevel) {
		asks = append(asks, Level{Price: lv.price, Quantity: lv.totalQty, Orders: lv.count})
	})

	return bids, asks
}

// canMatch is the crossing test: a buy at price can match only against a
// non-empty ask side whose best price it meets, and symmetrically for a
// sell. It gates admission of immediate-or-cancel orders.
func (b *Book) canMatch(side models.Side, price int64) bool {
	if side == models.Buy {
		best, ok := b.asks.bestPrice()
		return ok && price >= best
	}
	best, ok := b.bids.bestPrice()
	return ok && price <= best
}

func (b *Book) sideLadder(side models.Side) *ladder {
	if side == models.Buy {
		return b.bids
	}
	return b.asks
}

// removeNode erases an order from its queue and the locator table,
// destroying the price level if it empties.
func (b *Book) removeNode(node *orderNode) {
	level := node.level
	level.remove(node)
	if level.isEmpty() {
		b.sideLadder(node.order.Side).removeLevel(level.price)
	}
	delete(b.orders, node.order.ID)
}
