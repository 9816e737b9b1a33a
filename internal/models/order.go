package models

import (
	"errors"
	"fmt"
	"time"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderType controls how long an order may rest in the book.
type OrderType string

const (
	// GoodTillCancel rests until fully filled or explicitly cancelled.
	GoodTillCancel OrderType = "gtc"
	// ImmediateOrCancel must match at submission; any unmatched remainder
	// is discarded and never rests.
	ImmediateOrCancel OrderType = "ioc"
)

// Order is the mutable unit of resting liquidity. Price is a signed integer
// in the smallest quote increment; the engine itself does not constrain its
// sign, positivity is enforced at the API boundary.
type Order struct {
	ID        uint64    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     int64     `json:"price"`
	Initial   uint64    `json:"initial_quantity"`
	Remaining uint64    `json:"remaining_quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrder creates an order with its full quantity unfilled.
func NewOrder(id uint64, symbol string, side Side, typ OrderType, price int64, quantity uint64) *Order {
	return &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Initial:   quantity,
		Remaining: quantity,
		CreatedAt: time.Now(),
	}
}

// Filled returns the executed quantity.
func (o *Order) Filled() uint64 {
	return o.Initial - o.Remaining
}

// IsFilled reports whether no quantity remains.
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Fill consumes quantity from the order. It is the only mutator of
// Remaining. Overfilling indicates a bug in the matching loop, not bad
// input, so it panics rather than returning an error.
func (o *Order) Fill(quantity uint64) {
	if quantity > o.Remaining {
		panic(fmt.Sprintf("order %d: fill %d exceeds remaining %d", o.ID, quantity, o.Remaining))
	}
	o.Remaining -= quantity
}

func (o *Order) Validate() error {
	if o.ID == 0 {
		return errors.New("order id is required")
	}
	if o.Symbol == "" {
		return errors.New("symbol is required")
	}
	if !o.Side.IsValid() {
		return errors.New("side must be 'buy' or 'sell'")
	}
	if !o.Type.IsValid() {
		return errors.New("type must be 'gtc' or 'ioc'")
	}
	if o.Initial == 0 {
		return errors.New("quantity must be greater than 0")
	}
	if o.Remaining > o.Initial {
		return errors.New("remaining quantity cannot exceed initial quantity")
	}
	return nil
}

func (s Side) IsValid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (t OrderType) IsValid() bool {
	return t == GoodTillCancel || t == ImmediateOrCancel
}
