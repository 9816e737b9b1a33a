package engine

import (
	"time"

	"matchbook/internal/models"
)

// matchOrders drains the crossed region of the book: while the best bid
// price meets the best ask price, the two queue heads trade at
// min(remaining, remaining). Fully filled orders leave their queue and the
// locator table; emptied levels leave their ladder. The loop exits as soon
// as either side is empty or the best prices no longer cross, so the
// resting book is never crossed when AddOrder returns.
func (b *Book) matchOrders() []models.Trade {
	var trades []models.Trade

	for {
		bestBid := b.bids.best()
		bestAsk := b.asks.best()
		if bestBid == nil || bestAsk == nil {
			break
		}
		if bestBid.price < bestAsk.price {
			break
		}

		bidNode := bestBid.front()
		askNode := bestAsk.front()
		bid := bidNode.order
		ask := askNode.order

		quantity := min(bid.Remaining, ask.Remaining)

		bestBid.reduce(quantity)
		bestAsk.reduce(quantity)
		bid.Fill(quantity)
		ask.Fill(quantity)

		trades = append(trades, models.Trade{
			Symbol:    bid.Symbol,
			Bid:       models.TradeFill{OrderID: bid.ID, Price: bid.Price, Quantity: quantity},
			Ask:       models.TradeFill{OrderID: ask.ID, Price: ask.Price, Quantity: quantity},
			CreatedAt: time.Now(),
		})

		if bid.IsFilled() {
			b.removeNode(bidNode)
		}
		if ask.IsFilled() {
			b.removeNode(askNode)
		}
	}

	return trades
}
