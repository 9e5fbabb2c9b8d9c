package domain

import "time"

// EventType names an entry in a market's event stream.
type EventType string

const (
	EventOrderAccepted    EventType = "order.accepted"
	EventTradeExecuted    EventType = "trade.executed"
	EventOrderCanceled    EventType = "order.canceled"
	EventBookLevelChanged EventType = "book.level_changed"
)

// Reasons carried by OrderCanceled.
const (
	CancelReasonRequested             = "canceled"
	CancelReasonInsufficientLiquidity = "insufficient_liquidity"
)

// OrderAccepted is emitted once an order passed validation and got an id.
type OrderAccepted struct {
	OrderID uint64    `json:"order_id"`
	Side    OrderSide `json:"side"`
	Type    OrderType `json:"type"`
	Price   *Price    `json:"price,omitempty"`
	Size    int64     `json:"size"`
}

// OrderCanceled is emitted when an order leaves the book without trading
// its remainder: an explicit cancel, or a market order that ran out of
// opposing liquidity.
type OrderCanceled struct {
	OrderID       uint64    `json:"order_id"`
	Side          OrderSide `json:"side"`
	Price         *Price    `json:"price,omitempty"`
	RemainingSize int64     `json:"remaining_size"`
	Reason        string    `json:"reason"`
}

// LevelChange reports the new aggregate of one price level. Removed is
// set when the level no longer exists.
type LevelChange struct {
	Side       OrderSide `json:"side"`
	Price      Price     `json:"price"`
	Volume     int64     `json:"volume"`
	OrderCount int       `json:"order_count"`
	Removed    bool      `json:"removed"`
}

// Event is one entry of a market's strictly ordered event stream. Exactly
// one of the payload pointers is set, matching Type.
type Event struct {
	Seq       uint64      `json:"seq"`
	Type      EventType   `json:"type"`
	Pair      TradingPair `json:"pair"`
	Timestamp time.Time   `json:"timestamp"`

	Accepted *OrderAccepted `json:"accepted,omitempty"`
	Fill     *Fill          `json:"fill,omitempty"`
	Canceled *OrderCanceled `json:"canceled,omitempty"`
	Level    *LevelChange   `json:"level,omitempty"`
}
