package domain

import "time"

// Fill is one execution between a resting maker and an incoming taker at
// the maker's price.
type Fill struct {
	TradeID        string    `json:"trade_id"`
	MakerOrderID   uint64    `json:"maker_order_id"`
	TakerOrderID   uint64    `json:"taker_order_id"`
	TakerSide      OrderSide `json:"taker_side"`
	Price          Price     `json:"price"`
	Size           int64     `json:"size"`
	MakerRemaining int64     `json:"maker_remaining"`
	TakerRemaining int64     `json:"taker_remaining"`
	ExecutedAt     time.Time `json:"executed_at"`
}
