package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
)

var (
	btc = domain.MustPair("BTC/USDC")
	eth = domain.MustPair("ETH/USDC")
)

func tradeEvent(pair domain.TradingPair, seq uint64, size int64) domain.Event {
	return domain.Event{
		Seq:       seq,
		Type:      domain.EventTradeExecuted,
		Pair:      pair,
		Timestamp: time.Now(),
		Fill: &domain.Fill{
			TradeID: fmt.Sprintf("trade-%d", seq),
			Price:   domain.MustPrice("100"),
			Size:    size,
		},
	}
}

func levelEvent(pair domain.TradingPair, seq uint64) domain.Event {
	return domain.Event{
		Seq:   seq,
		Type:  domain.EventBookLevelChanged,
		Pair:  pair,
		Level: &domain.LevelChange{Side: domain.OrderSideAsk, Price: domain.MustPrice("100")},
	}
}

func TestEventLog_Since(t *testing.T) {
	s := NewEventLog(100)
	_ = s.Publish([]domain.Event{levelEvent(btc, 1), tradeEvent(btc, 2, 1), levelEvent(btc, 3)})
	_ = s.Publish([]domain.Event{levelEvent(eth, 1)})

	got := s.Since(btc, 1, 0)
	if len(got) != 2 || got[0].Seq != 2 || got[1].Seq != 3 {
		t.Fatalf("expected seqs [2 3], got %v", got)
	}
	if got := s.Since(btc, 0, 2); len(got) != 2 || got[1].Seq != 2 {
		t.Errorf("expected limit to cut at seq 2, got %v", got)
	}
	if got := s.Since(btc, 3, 0); len(got) != 0 {
		t.Errorf("expected nothing after last seq, got %v", got)
	}
	if got := s.Since(eth, 0, 0); len(got) != 1 {
		t.Errorf("expected markets kept apart, got %d eth events", len(got))
	}
}

func TestEventLog_Since_UnknownPair(t *testing.T) {
	s := NewEventLog(10)
	got := s.Since(btc, 0, 0)
	if got == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 events, got %d", len(got))
	}
}

func TestEventLog_EvictsOldest(t *testing.T) {
	s := NewEventLog(3)
	for seq := uint64(1); seq <= 5; seq++ {
		_ = s.Publish([]domain.Event{levelEvent(btc, seq)})
	}

	got := s.Since(btc, 0, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(got))
	}
	for i, want := range []uint64{3, 4, 5} {
		if got[i].Seq != want {
			t.Errorf("event %d: expected seq %d, got %d", i, want, got[i].Seq)
		}
	}
	if s.LastSeq(btc) != 5 {
		t.Errorf("expected last seq 5, got %d", s.LastSeq(btc))
	}
	if s.LastSeq(eth) != 0 {
		t.Errorf("expected last seq 0 for unknown pair, got %d", s.LastSeq(eth))
	}
	if !s.Evicted(btc, 0) || !s.Evicted(btc, 1) {
		t.Error("expected seqs 1 and 2 to be reported evicted")
	}
	if s.Evicted(btc, 2) {
		t.Error("nothing after seq 2 was evicted")
	}
}

func TestEventLog_ResumedStreamIsNotEvicted(t *testing.T) {
	s := NewEventLog(10)
	for seq := uint64(41); seq <= 43; seq++ {
		_ = s.Publish([]domain.Event{levelEvent(btc, seq)})
	}

	got := s.Since(btc, 0, 0)
	if len(got) != 3 || got[0].Seq != 41 {
		t.Fatalf("expected seqs 41..43, got %+v", got)
	}
	if s.Evicted(btc, 0) {
		t.Error("a stream starting past seq 1 must not count as evicted")
	}
}

func TestEventLog_TradesNewestFirst(t *testing.T) {
	s := NewEventLog(10)
	_ = s.Publish([]domain.Event{
		tradeEvent(btc, 1, 1),
		levelEvent(btc, 2),
		tradeEvent(btc, 3, 2),
		tradeEvent(btc, 4, 3),
	})

	trades := s.Trades(btc, 0)
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	if trades[0].TradeID != "trade-4" || trades[2].TradeID != "trade-1" {
		t.Errorf("expected newest first, got %s ... %s", trades[0].TradeID, trades[2].TradeID)
	}
	if got := s.Trades(btc, 2); len(got) != 2 || got[1].TradeID != "trade-3" {
		t.Errorf("expected 2 newest trades, got %v", got)
	}
	if got := s.Trades(eth, 5); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestEventLog_ReturnsCopy(t *testing.T) {
	s := NewEventLog(10)
	_ = s.Publish([]domain.Event{tradeEvent(btc, 1, 1)})

	trades := s.Trades(btc, 0)
	trades[0].Size = 999

	if again := s.Trades(btc, 0); again[0].Size != 1 {
		t.Fatal("internal state was mutated through the returned slice")
	}
}

func TestEventLog_ConcurrentAccess(t *testing.T) {
	s := NewEventLog(50)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for seq := uint64(1); seq <= 200; seq++ {
			_ = s.Publish([]domain.Event{tradeEvent(btc, seq, 1)})
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				evs := s.Since(btc, 0, 0)
				for k := 1; k < len(evs); k++ {
					if evs[k].Seq != evs[k-1].Seq+1 {
						t.Errorf("gap in retained events: %d then %d", evs[k-1].Seq, evs[k].Seq)
						return
					}
				}
				_ = s.Trades(btc, 10)
			}
		}()
	}
	wg.Wait()

	if got := len(s.Since(btc, 0, 0)); got != 50 {
		t.Errorf("expected 50 retained events, got %d", got)
	}
}

func TestRing_ZeroCapacity(t *testing.T) {
	r := newRing[int](0)
	if _, evicted := r.push(1); !evicted {
		t.Error("expected the item to be dropped")
	}
	if r.len() != 0 {
		t.Errorf("expected zero-capacity ring to stay empty, got %d", r.len())
	}
}

func TestRing_PushReportsEvicted(t *testing.T) {
	r := newRing[int](2)
	for _, v := range []int{1, 2} {
		if _, evicted := r.push(v); evicted {
			t.Fatalf("push %d: unexpected eviction", v)
		}
	}
	old, evicted := r.push(3)
	if !evicted || old != 1 {
		t.Errorf("expected 1 evicted, got %d (%v)", old, evicted)
	}
	if r.at(0) != 2 || r.at(1) != 3 {
		t.Errorf("expected [2 3], got [%d %d]", r.at(0), r.at(1))
	}
}
