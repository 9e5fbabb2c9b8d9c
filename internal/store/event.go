package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/matchcore/internal/domain"
)

// DefaultEventCapacity is used when NewEventLog gets a non-positive
// capacity.
const DefaultEventCapacity = 10000

// EventLog is a thread-safe in-memory log of recent events, keyed by
// pair. Each market keeps at most capacity events and capacity trades;
// older entries are evicted first. Events are appended in Seq order.
type EventLog struct {
	mu       sync.RWMutex
	capacity int
	events   map[domain.TradingPair]*ring[domain.Event]
	trades   map[domain.TradingPair]*ring[domain.Fill]
	evicted  map[domain.TradingPair]uint64 // Seq of the newest evicted event
}

// NewEventLog creates an empty EventLog.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventLog{
		capacity: capacity,
		events:   make(map[domain.TradingPair]*ring[domain.Event]),
		trades:   make(map[domain.TradingPair]*ring[domain.Fill]),
		evicted:  make(map[domain.TradingPair]uint64),
	}
}

// Publish appends a batch. It never fails.
func (s *EventLog) Publish(events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		log, ok := s.events[e.Pair]
		if !ok {
			log = newRing[domain.Event](s.capacity)
			s.events[e.Pair] = log
			s.trades[e.Pair] = newRing[domain.Fill](s.capacity)
		}
		if old, ok := log.push(e); ok {
			s.evicted[e.Pair] = old.Seq
		}
		if e.Type == domain.EventTradeExecuted && e.Fill != nil {
			s.trades[e.Pair].push(*e.Fill)
		}
	}
	return nil
}

// Since returns up to limit events of pair with Seq greater than seq, in
// Seq order. A non-positive limit means no limit. If seq is older than
// the retained window the result starts at the oldest retained event;
// Evicted tells callers whether that happened.
func (s *EventLog) Since(pair domain.TradingPair, seq uint64, limit int) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.events[pair]
	if !ok {
		return []domain.Event{}
	}

	n := log.len()
	first := sort.Search(n, func(i int) bool {
		return log.at(i).Seq > seq
	})
	count := n - first
	if limit > 0 && count > limit {
		count = limit
	}

	result := make([]domain.Event, count)
	for i := range result {
		result[i] = log.at(first + i)
	}
	return result
}

// Evicted reports whether any event of pair with Seq greater than seq
// was already dropped from the log. Seq gaps from a resumed stream do
// not count.
func (s *EventLog) Evicted(pair domain.TradingPair, seq uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.evicted[pair] > seq
}

// LastSeq returns the Seq of the newest retained event of pair, or 0.
func (s *EventLog) LastSeq(pair domain.TradingPair) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.events[pair]
	if !ok || log.len() == 0 {
		return 0
	}
	return log.at(log.len() - 1).Seq
}

// Trades returns up to limit of pair's most recent trades, newest first.
// A non-positive limit returns every retained trade.
func (s *EventLog) Trades(pair domain.TradingPair, limit int) []domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades, ok := s.trades[pair]
	if !ok {
		return []domain.Fill{}
	}

	n := trades.len()
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]domain.Fill, limit)
	for i := range result {
		result[i] = trades.at(n - 1 - i)
	}
	return result
}
