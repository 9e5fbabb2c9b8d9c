package engine

import (
	"container/list"
	"fmt"
	"math"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/sequence"
)

// OrderRequest is a validated-on-submit order intent. Price must be set
// for limit orders and left zero for market orders.
type OrderRequest struct {
	Side  domain.OrderSide
	Type  domain.OrderType
	Price domain.Price
	Size  int64
}

// Outcome summarizes what happened to a submitted order.
type Outcome string

const (
	OutcomeFilled   Outcome = "filled"   // nothing left
	OutcomePartial  Outcome = "partial"  // some fills, remainder rested or dropped
	OutcomeResting  Outcome = "resting"  // no fills, limit order rests in full
	OutcomeUnfilled Outcome = "unfilled" // market order found no liquidity
)

// Execution is the result of one submission. Order is a copy of the
// order's state after matching; for a market order that ran dry its
// RemainingSize is the dropped remainder.
type Execution struct {
	Order   domain.Order
	Outcome Outcome
	Fills   []domain.Fill
	Events  []domain.Event
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price       domain.Price
	TotalVolume int64
	OrderCount  int
}

// Snapshot is a depth-limited aggregate view of both sides. It carries no
// order identities.
type Snapshot struct {
	Pair    domain.TradingPair
	Bids    []PriceLevel // best (highest) first
	Asks    []PriceLevel // best (lowest) first
	LastSeq uint64       // last event sequence applied when taken
}

// QuotePriceLevel is the quantity a simulated market order would take
// from one level.
type QuotePriceLevel struct {
	Price    domain.Price
	Quantity int64
}

// QuoteResult holds the result of a market order simulation.
type QuoteResult struct {
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	AveragePrice      *decimal.Decimal // nil when no liquidity
	PriceLevels       []QuotePriceLevel
}

// orderLocation is the reverse-index entry that makes cancel O(1).
type orderLocation struct {
	limit *Limit
	elem  *list.Element
}

// bidLess orders bid levels by price descending, so Min() is the best bid.
func bidLess(a, b *Limit) bool {
	return b.price.Less(a.price)
}

// askLess orders ask levels by price ascending, so Min() is the best ask.
func askLess(a, b *Limit) bool {
	return a.price.Less(b.price)
}

// OrderBook holds both sides of one market as B-trees of price levels,
// plus an id index for O(1) cancel and lookup. It is not safe for
// concurrent use; Market serializes all access to it.
type OrderBook struct {
	pair  domain.TradingPair
	ids   *sequence.Sequencer
	bids  *btree.BTreeG[*Limit]
	asks  *btree.BTreeG[*Limit]
	index map[uint64]orderLocation

	pending []domain.Event
}

// NewOrderBook creates an empty book. Order ids are drawn from ids; pass
// nil to give the book its own sequencer.
func NewOrderBook(pair domain.TradingPair, ids *sequence.Sequencer) *OrderBook {
	const degree = 32
	if ids == nil {
		ids = sequence.New(0)
	}
	return &OrderBook{
		pair:  pair,
		ids:   ids,
		bids:  btree.NewG[*Limit](degree, bidLess),
		asks:  btree.NewG[*Limit](degree, askLess),
		index: make(map[uint64]orderLocation),
	}
}

// Pair returns the market this book belongs to.
func (ob *OrderBook) Pair() domain.TradingPair {
	return ob.pair
}

func (ob *OrderBook) side(s domain.OrderSide) *btree.BTreeG[*Limit] {
	if s == domain.OrderSideBid {
		return ob.bids
	}
	return ob.asks
}

// validate rejects a request before any state is touched.
func validate(req OrderRequest) error {
	if !req.Side.Valid() {
		return domain.Invalid(domain.ErrInvalidSide, fmt.Sprintf("side must be %q or %q", domain.OrderSideBid, domain.OrderSideAsk))
	}
	if !req.Type.Valid() {
		return domain.Invalid(domain.ErrInvalidOrderType,
			fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type))
	}
	if req.Size <= 0 {
		return domain.Invalid(domain.ErrInvalidSize, "size must be a positive integer")
	}
	if req.Type == domain.OrderTypeLimit && req.Price.IsZero() {
		return domain.Invalid(domain.ErrInvalidPrice, "price is required for limit orders and must be positive")
	}
	if req.Type == domain.OrderTypeMarket && !req.Price.IsZero() {
		return domain.Invalid(domain.ErrInvalidPrice, "price must be omitted for market orders")
	}
	return nil
}

// Submit validates req, assigns an id, matches it against the opposite
// side and rests any limit remainder. A market order that cannot be
// fully filled keeps its fills, drops the remainder, and returns its
// Execution together with ErrInsufficientLiquidity.
func (ob *OrderBook) Submit(req OrderRequest) (*Execution, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Type == domain.OrderTypeLimit && req.Size > ob.headroom(req.Side, req.Price) {
		return nil, domain.Invalid(domain.ErrInvalidSize,
			fmt.Sprintf("size %d would overflow the volume resting at %s", req.Size, req.Price))
	}

	order, err := domain.NewOrder(req.Side, req.Size)
	if err != nil {
		return nil, err
	}
	order.ID = ob.ids.Next()
	order.Type = req.Type
	order.Price = req.Price
	order.CreatedAt = time.Now()

	ob.emit(domain.Event{Type: domain.EventOrderAccepted, Accepted: &domain.OrderAccepted{
		OrderID: order.ID,
		Side:    order.Side,
		Type:    order.Type,
		Price:   limitPrice(order),
		Size:    order.OriginalSize,
	}})

	fills := ob.match(order)

	var liquidityErr error
	if !order.IsFilled() {
		if order.Type == domain.OrderTypeLimit {
			ob.rest(order)
		} else {
			ob.emit(domain.Event{Type: domain.EventOrderCanceled, Canceled: &domain.OrderCanceled{
				OrderID:       order.ID,
				Side:          order.Side,
				RemainingSize: order.RemainingSize,
				Reason:        domain.CancelReasonInsufficientLiquidity,
			}})
			liquidityErr = fmt.Errorf("%w: %d of %d unfilled", domain.ErrInsufficientLiquidity,
				order.RemainingSize, order.OriginalSize)
		}
	}

	exec := &Execution{
		Order:   *order,
		Outcome: outcomeOf(order, len(fills)),
		Fills:   fills,
		Events:  ob.drain(),
	}
	return exec, liquidityErr
}

func outcomeOf(o *domain.Order, fills int) Outcome {
	switch {
	case o.IsFilled():
		return OutcomeFilled
	case fills > 0:
		return OutcomePartial
	case o.Type == domain.OrderTypeLimit:
		return OutcomeResting
	}
	return OutcomeUnfilled
}

// match walks the opposite side best price first. It stops when the taker
// is filled, the opposite side is empty, or (limit orders only) the best
// opposite price is worse than the taker's limit. Equal prices cross.
func (ob *OrderBook) match(taker *domain.Order) []domain.Fill {
	opposite := ob.side(taker.Side.Opposite())
	var fills []domain.Fill

	for !taker.IsFilled() {
		best, ok := opposite.Min()
		if !ok {
			break
		}
		if taker.Type == domain.OrderTypeLimit && !crosses(taker, best.price) {
			break
		}

		levelFills := best.Fill(taker)
		for i := range levelFills {
			f := levelFills[i]
			if f.MakerRemaining == 0 {
				delete(ob.index, f.MakerOrderID)
			}
			ob.emit(domain.Event{Type: domain.EventTradeExecuted, Fill: &f})
		}
		fills = append(fills, levelFills...)

		level := best.Level()
		ob.emit(domain.Event{Type: domain.EventBookLevelChanged, Level: &level})
		if best.IsEmpty() {
			opposite.Delete(best)
		}
	}
	return fills
}

// crosses reports whether a limit taker may trade at the resting price.
func crosses(taker *domain.Order, resting domain.Price) bool {
	if taker.Side == domain.OrderSideBid {
		return !taker.Price.Less(resting)
	}
	return !resting.Less(taker.Price)
}

// headroom is how much more size the level at price on side can hold
// before its volume overflows int64.
func (ob *OrderBook) headroom(side domain.OrderSide, price domain.Price) int64 {
	l, ok := ob.side(side).Get(&Limit{price: price})
	if !ok {
		return math.MaxInt64
	}
	return math.MaxInt64 - l.volume
}

// rest places a non-crossing remainder on its side of the book.
func (ob *OrderBook) rest(o *domain.Order) {
	tree := ob.side(o.Side)
	limit, ok := tree.Get(&Limit{price: o.Price})
	if !ok {
		limit = NewLimit(o.Side, o.Price)
		tree.ReplaceOrInsert(limit)
	}
	ob.index[o.ID] = orderLocation{limit: limit, elem: limit.Add(o)}

	level := limit.Level()
	ob.emit(domain.Event{Type: domain.EventBookLevelChanged, Level: &level})
}

// AddRestingOrder places o on the book at price without matching. It is
// meant for orders that cannot cross; a bid at or above the best ask (or
// an ask at or below the best bid) is rejected with ErrInvalidPrice so
// the book never becomes crossed. An order without an id gets one from
// the sequencer; a preset id must already have been issued by it and
// must not be resting, otherwise ErrInvalidOrderID. The returned events
// describe the level change.
func (ob *OrderBook) AddRestingOrder(price domain.Price, o *domain.Order) ([]domain.Event, error) {
	if price.IsZero() {
		return nil, domain.Invalid(domain.ErrInvalidPrice, "resting price must be positive")
	}
	if !o.Side.Valid() {
		return nil, domain.Invalid(domain.ErrInvalidSide, fmt.Sprintf("side must be %q or %q", domain.OrderSideBid, domain.OrderSideAsk))
	}
	if o.RemainingSize <= 0 || o.RemainingSize > o.OriginalSize {
		return nil, domain.Invalid(domain.ErrInvalidSize, "remaining size must be positive and within the original size")
	}
	if best, ok := ob.side(o.Side.Opposite()).Min(); ok {
		cand := domain.Order{Side: o.Side, Price: price}
		if crosses(&cand, best.price) {
			return nil, domain.Invalid(domain.ErrInvalidPrice,
				fmt.Sprintf("%s @ %s would cross the best %s @ %s", o.Side, price, best.side, best.price))
		}
	}
	if o.RemainingSize > ob.headroom(o.Side, price) {
		return nil, domain.Invalid(domain.ErrInvalidSize,
			fmt.Sprintf("size %d would overflow the volume resting at %s", o.RemainingSize, price))
	}
	if o.ID == 0 {
		o.ID = ob.ids.Next()
	} else if o.ID > ob.ids.Current() {
		return nil, domain.Invalid(domain.ErrInvalidOrderID,
			fmt.Sprintf("order id %d was never issued", o.ID))
	} else if _, exists := ob.index[o.ID]; exists {
		return nil, domain.Invalid(domain.ErrInvalidOrderID,
			fmt.Sprintf("order %d already rests on the book", o.ID))
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.Type = domain.OrderTypeLimit
	o.Price = price

	ob.rest(o)
	return ob.drain(), nil
}

// Cancel removes a resting order. It returns ErrOrderNotFound when the id
// is unknown, already filled, or already canceled. The returned order
// carries the size that was still open.
func (ob *OrderBook) Cancel(id uint64) (*domain.Order, []domain.Event, error) {
	loc, ok := ob.index[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", domain.ErrOrderNotFound, id)
	}
	delete(ob.index, id)

	o := loc.limit.Remove(loc.elem)
	if loc.limit.IsEmpty() {
		ob.side(o.Side).Delete(loc.limit)
	}

	ob.emit(domain.Event{Type: domain.EventOrderCanceled, Canceled: &domain.OrderCanceled{
		OrderID:       o.ID,
		Side:          o.Side,
		Price:         limitPrice(o),
		RemainingSize: o.RemainingSize,
		Reason:        domain.CancelReasonRequested,
	}})
	level := loc.limit.Level()
	ob.emit(domain.Event{Type: domain.EventBookLevelChanged, Level: &level})

	canceled := *o
	return &canceled, ob.drain(), nil
}

// Order returns a copy of a resting order.
func (ob *OrderBook) Order(id uint64) (domain.Order, error) {
	loc, ok := ob.index[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %d", domain.ErrOrderNotFound, id)
	}
	return *loc.elem.Value.(*domain.Order), nil
}

// BestBid returns the highest resting bid price.
func (ob *OrderBook) BestBid() (domain.Price, bool) {
	l, ok := ob.bids.Min()
	if !ok {
		return domain.Price{}, false
	}
	return l.price, true
}

// BestAsk returns the lowest resting ask price.
func (ob *OrderBook) BestAsk() (domain.Price, bool) {
	l, ok := ob.asks.Min()
	if !ok {
		return domain.Price{}, false
	}
	return l.price, true
}

// Len returns the number of resting orders on both sides.
func (ob *OrderBook) Len() int {
	return len(ob.index)
}

// LevelCount returns the number of price levels on one side.
func (ob *OrderBook) LevelCount(side domain.OrderSide) int {
	return ob.side(side).Len()
}

// WalkLevels iterates one side best price first. The callback returns
// false to stop.
func (ob *OrderBook) WalkLevels(side domain.OrderSide, fn func(*Limit) bool) {
	ob.side(side).Ascend(btree.ItemIteratorG[*Limit](fn))
}

// Snapshot returns up to depth aggregated levels per side.
func (ob *OrderBook) Snapshot(depth int) Snapshot {
	return Snapshot{
		Pair: ob.pair,
		Bids: topLevels(ob.bids, depth),
		Asks: topLevels(ob.asks, depth),
	}
}

// topLevels collects at most n levels from the front of tree.
func topLevels(tree *btree.BTreeG[*Limit], n int) []PriceLevel {
	levels := make([]PriceLevel, 0, max(0, min(n, tree.Len())))
	if n <= 0 {
		return levels
	}
	tree.Ascend(func(l *Limit) bool {
		levels = append(levels, PriceLevel{
			Price:       l.price,
			TotalVolume: l.volume,
			OrderCount:  l.Len(),
		})
		return len(levels) < n
	})
	return levels
}

// Quote performs a read-only walk of the side a market order of the given
// side would consume and reports what it would get.
func (ob *OrderBook) Quote(side domain.OrderSide, quantity int64) (*QuoteResult, error) {
	if !side.Valid() {
		return nil, domain.Invalid(domain.ErrInvalidSide, fmt.Sprintf("side must be %q or %q", domain.OrderSideBid, domain.OrderSideAsk))
	}
	if quantity <= 0 {
		return nil, domain.Invalid(domain.ErrInvalidSize, "size must be a positive integer")
	}

	result := &QuoteResult{
		QuantityRequested: quantity,
		PriceLevels:       make([]QuotePriceLevel, 0),
	}
	remaining := quantity
	totalCost := decimal.Zero

	ob.side(side.Opposite()).Ascend(func(l *Limit) bool {
		qty := min(remaining, l.volume)
		totalCost = totalCost.Add(l.price.Decimal().Mul(decimal.NewFromInt(qty)))
		result.QuantityAvailable += qty
		result.PriceLevels = append(result.PriceLevels, QuotePriceLevel{Price: l.price, Quantity: qty})
		remaining -= qty
		return remaining > 0
	})

	if result.QuantityAvailable > 0 {
		avg := totalCost.Div(decimal.NewFromInt(result.QuantityAvailable))
		result.AveragePrice = &avg
	}
	result.FullyFillable = result.QuantityAvailable == quantity
	return result, nil
}

func (ob *OrderBook) emit(e domain.Event) {
	e.Pair = ob.pair
	e.Timestamp = time.Now()
	ob.pending = append(ob.pending, e)
}

func (ob *OrderBook) drain() []domain.Event {
	out := ob.pending
	ob.pending = nil
	return out
}

func limitPrice(o *domain.Order) *domain.Price {
	if o.Type != domain.OrderTypeLimit {
		return nil
	}
	p := o.Price
	return &p
}
