package models

import (
	"errors"
	"time"
)

// TradeFill is one side's view of a match: the order it executed for, the
// price that order was resting at, and the matched quantity. The bid and
// ask fills of a Trade may carry different prices; each records its own
// order's limit price.
type TradeFill struct {
	OrderID  uint64 `json:"order_id"`
	Price    int64  `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// Trade is an immutable receipt of one matched quantity between a bid and
// an ask order.
type Trade struct {
	Symbol    string    `json:"symbol"`
	Bid       TradeFill `json:"bid"`
	Ask       TradeFill `json:"ask"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Trade) Validate() error {
	if t.Bid.OrderID == 0 || t.Ask.OrderID == 0 {
		return errors.New("both order ids are required")
	}
	if t.Bid.OrderID == t.Ask.OrderID {
		return errors.New("bid and ask order ids must be different")
	}
	if t.Bid.Quantity != t.Ask.Quantity {
		return errors.New("bid and ask quantities must match")
	}
	if t.Bid.Quantity == 0 {
		return errors.New("quantity must be greater than 0")
	}
	return nil
}

// Quantity returns the matched quantity, equal on both sides.
func (t *Trade) Quantity() uint64 {
	return t.Bid.Quantity
}
