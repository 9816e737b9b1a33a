package engine

import "matchbook/internal/models"

// orderNode is one position in a price level's FIFO queue. A node handle
// stays valid until the node is unlinked, so the locator table can cancel
// any resting order in O(1) without scanning the queue.
type orderNode struct {
	order *models.Order
	prev  *orderNode
	next  *orderNode
	level *priceLevel
}

// priceLevel holds all resting orders at one price, in arrival order.
// totalQty tracks the aggregate remaining quantity so depth snapshots do
// not have to walk the queue.
type priceLevel struct {
	price    int64
	head     *orderNode
	tail     *orderNode
	count    int
	totalQty uint64
}

func newPriceLevel(price int64) *priceLevel {
	return &priceLevel{price: price}
}

func (l *priceLevel) isEmpty() bool {
	return l.count == 0
}

// front returns the oldest resting order at this price.
func (l *priceLevel) front() *orderNode {
	return l.head
}

// append adds an order at the back of the queue and returns its node.
func (l *priceLevel) append(order *models.Order) *orderNode {
	node := &orderNode{order: order, level: l}

	if l.tail == nil {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}

	l.count++
	l.totalQty += order.Remaining
	return node
}

// remove unlinks a node from anywhere in the queue. The node's order still
// carries its remaining quantity, which is deducted from the level total.
func (l *priceLevel) remove(node *orderNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil

	l.count--
	l.totalQty -= node.order.Remaining
}

// reduce deducts matched quantity from the level total. Called by the
// matching loop before the fill is applied to the order itself.
func (l *priceLevel) reduce(quantity uint64) {
	l.totalQty -= quantity
}
