package engine

import (
	"sort"

	"matchbook/internal/models"
)

// ladder is one side's ordered price index: every price with resting
// orders, kept in priority order (bids highest first, asks lowest first),
// each mapping to its FIFO queue. Levels are created on first use and
// destroyed the moment they empty.
type ladder struct {
	side   models.Side
	prices []int64
	levels map[int64]*priceLevel
}

func newLadder(side models.Side) *ladder {
	return &ladder{
		side:   side,
		levels: make(map[int64]*priceLevel),
	}
}

// before reports whether price a has strictly better priority than b.
func (l *ladder) before(a, b int64) bool {
	if l.side == models.Buy {
		return a > b
	}
	return a < b
}

func (l *ladder) isEmpty() bool {
	return len(l.prices) == 0
}

// best returns the highest-priority level, or nil when the side is empty.
func (l *ladder) best() *priceLevel {
	if len(l.prices) == 0 {
		return nil
	}
	return l.levels[l.prices[0]]
}

func (l *ladder) bestPrice() (int64, bool) {
	if len(l.prices) == 0 {
		return 0, false
	}
	return l.prices[0], true
}

// level returns the queue at price, creating the level if absent.
func (l *ladder) level(price int64) *priceLevel {
	if lv, ok := l.levels[price]; ok {
		return lv
	}
	lv := newPriceLevel(price)
	l.levels[price] = lv

	idx := sort.Search(len(l.prices), func(i int) bool {
		return !l.before(l.prices[i], price)
	})
	l.prices = append(l.prices, 0)
	copy(l.prices[idx+1:], l.prices[idx:])
	l.prices[idx] = price
	return lv
}

// removeLevel destroys an emptied price level.
func (l *ladder) removeLevel(price int64) {
	if _, ok := l.levels[price]; !ok {
		return
	}
	delete(l.levels, price)

	idx := sort.Search(len(l.prices), func(i int) bool {
		return !l.before(l.prices[i], price)
	})
	if idx < len(l.prices) && l.prices[idx] == price {
		l.prices = append(l.prices[:idx], l.prices[idx+1:]...)
	}
}

// each visits every level in priority order.
func (l *ladder) each(fn func(*priceLevel)) {
	for _, price := range l.prices {
		fn(l.levels[price])
	}
}

// depth returns the number of occupied price levels.
func (l *ladder) depth() int {
	return len(l.prices)
}
