package domain

import (
	"fmt"
	"time"
)

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == OrderTypeLimit || t == OrderTypeMarket
}

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBid OrderSide = "bid"
	OrderSideAsk OrderSide = "ask"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBid || s == OrderSideAsk
}

// Opposite returns the side an order of side s matches against.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBid {
		return OrderSideAsk
	}
	return OrderSideBid
}

// Order is one resting or incoming intent. ID, Side, Type, Price and
// OriginalSize never change after submission; RemainingSize only shrinks.
type Order struct {
	ID            uint64
	Side          OrderSide
	Type          OrderType
	Price         Price // zero for market orders
	OriginalSize  int64
	RemainingSize int64
	CreatedAt     time.Time
}

// NewOrder creates an order of the given side and size. It returns
// ErrInvalidSize unless size is positive.
func NewOrder(side OrderSide, size int64) (*Order, error) {
	if !side.Valid() {
		return nil, Invalid(ErrInvalidSide, fmt.Sprintf("side must be %q or %q", OrderSideBid, OrderSideAsk))
	}
	if size <= 0 {
		return nil, Invalid(ErrInvalidSize, "size must be a positive integer")
	}
	return &Order{
		Side:          side,
		OriginalSize:  size,
		RemainingSize: size,
	}, nil
}

// Reduce takes amount off the remaining size. It returns ErrOverFill if
// amount exceeds what is left and ErrInvalidSize if amount is negative.
func (o *Order) Reduce(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: reduce by %d", ErrInvalidSize, amount)
	}
	if amount > o.RemainingSize {
		return fmt.Errorf("%w: order %d has %d left, asked for %d", ErrOverFill, o.ID, o.RemainingSize, amount)
	}
	o.RemainingSize -= amount
	return nil
}

// IsFilled reports whether nothing is left to trade.
func (o *Order) IsFilled() bool {
	return o.RemainingSize == 0
}

// FilledSize returns how much of the order has traded.
func (o *Order) FilledSize() int64 {
	return o.OriginalSize - o.RemainingSize
}

// OrderStatus is the lifecycle state of an order as seen from its events.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCanceled:
		return true
	}
	return false
}
