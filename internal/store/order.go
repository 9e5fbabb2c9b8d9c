package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
)

// OrderRecord is the lifecycle view of one order, rebuilt from events.
type OrderRecord struct {
	ID            uint64             `json:"order_id"`
	Pair          domain.TradingPair `json:"pair"`
	Side          domain.OrderSide   `json:"side"`
	Type          domain.OrderType   `json:"type"`
	Price         *domain.Price      `json:"price,omitempty"`
	Size          int64              `json:"size"`
	FilledSize    int64              `json:"filled_size"`
	RemainingSize int64              `json:"remaining_size"`
	Status        domain.OrderStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// OrderStore is a thread-safe projection of order events, with a primary
// index by order id and a secondary, arrival-ordered index by pair.
// Records are copied on the way out.
type OrderStore struct {
	mu         sync.RWMutex
	orders     map[uint64]*OrderRecord
	pairOrders map[domain.TradingPair][]*OrderRecord
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:     make(map[uint64]*OrderRecord),
		pairOrders: make(map[domain.TradingPair][]*OrderRecord),
	}
}

// Publish applies a batch of events. It never fails; events for orders
// it has not seen accepted are ignored.
func (s *OrderStore) Publish(events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		switch e.Type {
		case domain.EventOrderAccepted:
			a := e.Accepted
			rec := &OrderRecord{
				ID:            a.OrderID,
				Pair:          e.Pair,
				Side:          a.Side,
				Type:          a.Type,
				Price:         a.Price,
				Size:          a.Size,
				RemainingSize: a.Size,
				Status:        domain.OrderStatusOpen,
				CreatedAt:     e.Timestamp,
				UpdatedAt:     e.Timestamp,
			}
			s.orders[rec.ID] = rec
			s.pairOrders[e.Pair] = append(s.pairOrders[e.Pair], rec)
		case domain.EventTradeExecuted:
			f := e.Fill
			s.applyFill(f.MakerOrderID, f.Size, f.MakerRemaining, e.Timestamp)
			s.applyFill(f.TakerOrderID, f.Size, f.TakerRemaining, e.Timestamp)
		case domain.EventOrderCanceled:
			if rec, ok := s.orders[e.Canceled.OrderID]; ok {
				rec.RemainingSize = e.Canceled.RemainingSize
				rec.Status = domain.OrderStatusCanceled
				rec.UpdatedAt = e.Timestamp
			}
		}
	}
	return nil
}

func (s *OrderStore) applyFill(id uint64, size, remaining int64, at time.Time) {
	rec, ok := s.orders[id]
	if !ok {
		return
	}
	rec.FilledSize += size
	rec.RemainingSize = remaining
	rec.UpdatedAt = at
	if remaining == 0 {
		rec.Status = domain.OrderStatusFilled
	} else {
		rec.Status = domain.OrderStatusPartiallyFilled
	}
}

// Get retrieves an order by id within pair. It returns
// domain.ErrOrderNotFound if the order does not exist on that market.
func (s *OrderStore) Get(pair domain.TradingPair, id uint64) (OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok || rec.Pair != pair {
		return OrderRecord{}, fmt.Errorf("%w: %d", domain.ErrOrderNotFound, id)
	}
	return *rec, nil
}

// ListByPair returns orders for a pair in reverse arrival order (newest
// first). If status is non-nil, only orders matching that status are
// included. Pagination is 1-based. Returns the matching orders for the
// requested page and the total count of matching orders.
func (s *OrderStore) ListByPair(pair domain.TradingPair, status *domain.OrderStatus, page, limit int) ([]OrderRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.pairOrders[pair]

	filtered := make([]*OrderRecord, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total || start < 0 {
		return []OrderRecord{}, total
	}
	end := min(start+limit, total)

	result := make([]OrderRecord, 0, end-start)
	for _, rec := range filtered[start:end] {
		result = append(result, *rec)
	}
	return result, total
}
