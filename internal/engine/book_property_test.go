package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/efreitasn/matchcore/internal/domain"
	"pgregory.net/rapid"
)

// genRequest draws limit and market orders over a narrow price band so
// that crossing and level sharing happen often.
func genRequest() *rapid.Generator[OrderRequest] {
	return rapid.Custom(func(t *rapid.T) OrderRequest {
		side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBid, domain.OrderSideAsk}).Draw(t, "side")
		size := rapid.Int64Range(1, 20).Draw(t, "size")
		if rapid.IntRange(0, 4).Draw(t, "kind") == 0 {
			return OrderRequest{Side: side, Type: domain.OrderTypeMarket, Size: size}
		}
		units := rapid.Int64Range(95, 105).Draw(t, "price")
		price, _ := domain.PriceFromUnits(units * 100_000_000)
		return OrderRequest{Side: side, Type: domain.OrderTypeLimit, Price: price, Size: size}
	})
}

func submitAny(t *rapid.T, ob *OrderBook, req OrderRequest) *Execution {
	exec, err := ob.Submit(req)
	if err != nil && !errors.Is(err, domain.ErrInsufficientLiquidity) {
		t.Fatalf("submit %+v: %v", req, err)
	}
	return exec
}

func restingVolume(ob *OrderBook) int64 {
	var total int64
	for _, side := range []domain.OrderSide{domain.OrderSideBid, domain.OrderSideAsk} {
		ob.WalkLevels(side, func(l *Limit) bool {
			total += l.TotalVolume()
			return true
		})
	}
	return total
}

// Submitted size is always accounted for: traded twice (once per side),
// resting, or dropped by a market order.
func TestProperty_SizeConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(testPair, nil)
		n := rapid.IntRange(1, 60).Draw(t, "numOrders")

		var submitted, traded, dropped int64
		for i := 0; i < n; i++ {
			req := genRequest().Draw(t, fmt.Sprintf("order-%d", i))
			exec := submitAny(t, ob, req)
			submitted += req.Size
			for _, f := range exec.Fills {
				traded += f.Size
			}
			if exec.Order.Type == domain.OrderTypeMarket {
				dropped += exec.Order.RemainingSize
			}
		}

		if got := 2*traded + restingVolume(ob) + dropped; got != submitted {
			t.Fatalf("conservation broken: submitted %d, traded %d, resting %d, dropped %d",
				submitted, traded, restingVolume(ob), dropped)
		}
	})
}

func TestProperty_BookNeverCrossed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(testPair, nil)
		n := rapid.IntRange(1, 60).Draw(t, "numOrders")

		for i := 0; i < n; i++ {
			submitAny(t, ob, genRequest().Draw(t, fmt.Sprintf("order-%d", i)))

			bid, hasBid := ob.BestBid()
			ask, hasAsk := ob.BestAsk()
			if hasBid && hasAsk && !bid.Less(ask) {
				t.Fatalf("book crossed after order %d: bid %s >= ask %s", i, bid, ask)
			}
		}
	})
}

func TestProperty_LevelsSortedAndConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(testPair, nil)
		n := rapid.IntRange(1, 60).Draw(t, "numOrders")
		for i := 0; i < n; i++ {
			submitAny(t, ob, genRequest().Draw(t, fmt.Sprintf("order-%d", i)))
		}

		count := 0
		for _, side := range []domain.OrderSide{domain.OrderSideBid, domain.OrderSideAsk} {
			var prev *Limit
			ob.WalkLevels(side, func(l *Limit) bool {
				if l.IsEmpty() {
					t.Fatalf("%s level %s is empty but still on the book", side, l.Price())
				}
				var sum int64
				var lastID uint64
				for _, o := range l.Orders() {
					if o.Price != l.Price() || o.Side != side {
						t.Fatalf("order %d (%s @ %s) sits in %s level %s", o.ID, o.Side, o.Price, side, l.Price())
					}
					if o.ID <= lastID {
						t.Fatalf("level %s not in arrival order: %d after %d", l.Price(), o.ID, lastID)
					}
					if o.RemainingSize <= 0 {
						t.Fatalf("order %d rests with size %d", o.ID, o.RemainingSize)
					}
					lastID = o.ID
					sum += o.RemainingSize
					count++
				}
				if sum != l.TotalVolume() {
					t.Fatalf("level %s volume %d, orders sum to %d", l.Price(), l.TotalVolume(), sum)
				}
				if prev != nil {
					better := prev.Price().Less(l.Price())
					if side == domain.OrderSideAsk {
						better = l.Price().Less(prev.Price())
					}
					if better || prev.Price() == l.Price() {
						t.Fatalf("%s levels out of order: %s then %s", side, prev.Price(), l.Price())
					}
				}
				prev = l
				return true
			})
		}
		if count != ob.Len() {
			t.Fatalf("index holds %d orders, levels hold %d", ob.Len(), count)
		}
	})
}

// Every fill happens at the maker's price and never beyond a limit
// taker's own price.
func TestProperty_FillsAtMakerPriceWithinLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(testPair, nil)
		resting := map[uint64]domain.Price{}
		n := rapid.IntRange(1, 60).Draw(t, "numOrders")

		for i := 0; i < n; i++ {
			req := genRequest().Draw(t, fmt.Sprintf("order-%d", i))
			exec := submitAny(t, ob, req)
			for _, f := range exec.Fills {
				mp, ok := resting[f.MakerOrderID]
				if !ok {
					t.Fatalf("fill against unknown maker %d", f.MakerOrderID)
				}
				if f.Price != mp {
					t.Fatalf("fill at %s, maker rests at %s", f.Price, mp)
				}
				if req.Type == domain.OrderTypeLimit {
					if req.Side == domain.OrderSideBid && req.Price.Less(f.Price) {
						t.Fatalf("bid limit %s filled at %s", req.Price, f.Price)
					}
					if req.Side == domain.OrderSideAsk && f.Price.Less(req.Price) {
						t.Fatalf("ask limit %s filled at %s", req.Price, f.Price)
					}
				}
			}
			if req.Type == domain.OrderTypeLimit && !exec.Order.IsFilled() {
				resting[exec.Order.ID] = req.Price
			}
		}
	})
}

func TestProperty_CancelIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(testPair, nil)
		var ids []uint64
		n := rapid.IntRange(1, 40).Draw(t, "numOrders")
		for i := 0; i < n; i++ {
			exec := submitAny(t, ob, genRequest().Draw(t, fmt.Sprintf("order-%d", i)))
			ids = append(ids, exec.Order.ID)
		}

		id := rapid.SampledFrom(ids).Draw(t, "cancelID")
		before := ob.Len()
		_, _, err := ob.Cancel(id)
		if err == nil {
			if ob.Len() != before-1 {
				t.Fatalf("cancel removed %d orders", before-ob.Len())
			}
		} else if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("unexpected cancel error: %v", err)
		}

		after := ob.Len()
		if _, _, err := ob.Cancel(id); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("second cancel of %d: expected ErrOrderNotFound, got %v", id, err)
		}
		if ob.Len() != after {
			t.Fatal("second cancel changed the book")
		}
	})
}
