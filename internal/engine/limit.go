package engine

import (
	"container/list"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchcore/internal/domain"
)

// Limit is the FIFO queue of resting orders at one exact price on one
// side of the book. Queue order is arrival order; it is never reordered.
type Limit struct {
	side   domain.OrderSide
	price  domain.Price
	orders *list.List // *domain.Order, oldest first
	volume int64      // sum of RemainingSize over orders
}

// NewLimit creates an empty price level.
func NewLimit(side domain.OrderSide, price domain.Price) *Limit {
	return &Limit{
		side:   side,
		price:  price,
		orders: list.New(),
	}
}

// Price returns the level's price.
func (l *Limit) Price() domain.Price {
	return l.price
}

// Side returns the book side the level belongs to.
func (l *Limit) Side() domain.OrderSide {
	return l.side
}

// Len returns the number of resting orders.
func (l *Limit) Len() int {
	return l.orders.Len()
}

// IsEmpty reports whether no orders rest at this price.
func (l *Limit) IsEmpty() bool {
	return l.orders.Len() == 0
}

// TotalVolume returns the summed remaining size, 0 for an empty level.
func (l *Limit) TotalVolume() int64 {
	return l.volume
}

// Add appends o to the back of the queue. The returned element is the
// handle used for O(1) removal on cancel. It panics if the level volume
// would overflow int64; OrderBook checks headroom before resting.
func (l *Limit) Add(o *domain.Order) *list.Element {
	if o.Side != l.side || o.Price != l.price {
		panic(fmt.Sprintf("order %d (%s @ %s) added to %s level @ %s", o.ID, o.Side, o.Price, l.side, l.price))
	}
	if o.RemainingSize > math.MaxInt64-l.volume {
		panic(fmt.Sprintf("order %d: level %s @ %s volume overflows", o.ID, l.side, l.price))
	}
	l.volume += o.RemainingSize
	return l.orders.PushBack(o)
}

// Remove takes the order held by e out of the queue.
func (l *Limit) Remove(e *list.Element) *domain.Order {
	o := l.orders.Remove(e).(*domain.Order)
	l.volume -= o.RemainingSize
	return o
}

// Orders returns the resting orders in queue order.
func (l *Limit) Orders() []*domain.Order {
	out := make([]*domain.Order, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*domain.Order))
	}
	return out
}

// Level returns the aggregate view of this price level.
func (l *Limit) Level() domain.LevelChange {
	return domain.LevelChange{
		Side:       l.side,
		Price:      l.price,
		Volume:     l.volume,
		OrderCount: l.orders.Len(),
		Removed:    l.orders.Len() == 0,
	}
}

// Fill trades the incoming taker against the queue in arrival order. Each
// step trades min(taker remaining, maker remaining) at the level's price;
// makers that reach zero leave the queue. It stops when the taker is
// filled or the queue is exhausted.
func (l *Limit) Fill(taker *domain.Order) []domain.Fill {
	var fills []domain.Fill
	executedAt := time.Now()

	for e := l.orders.Front(); e != nil && !taker.IsFilled(); {
		maker := e.Value.(*domain.Order)
		qty := min(taker.RemainingSize, maker.RemainingSize)

		mustReduce(maker, qty)
		mustReduce(taker, qty)
		l.volume -= qty

		fills = append(fills, domain.Fill{
			TradeID:        uuid.NewString(),
			MakerOrderID:   maker.ID,
			TakerOrderID:   taker.ID,
			TakerSide:      taker.Side,
			Price:          l.price,
			Size:           qty,
			MakerRemaining: maker.RemainingSize,
			TakerRemaining: taker.RemainingSize,
			ExecutedAt:     executedAt,
		})

		next := e.Next()
		if maker.IsFilled() {
			l.orders.Remove(e)
		}
		e = next
	}
	return fills
}

// mustReduce applies a fill the matching loop has already bounded. An
// error here means the book is corrupt, so it panics.
func mustReduce(o *domain.Order, qty int64) {
	if err := o.Reduce(qty); err != nil {
		panic(err)
	}
}
