package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
)

var (
	btc = domain.MustPair("BTC/USDC")
	eth = domain.MustPair("ETH/USDC")
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func tradeEvent(pair domain.TradingPair, seq uint64) domain.Event {
	return domain.Event{
		Seq:       seq,
		Type:      domain.EventTradeExecuted,
		Pair:      pair,
		Timestamp: time.Date(2025, 1, 1, 0, 0, int(seq), 0, time.UTC),
		Fill: &domain.Fill{
			TradeID:      "t",
			MakerOrderID: 1,
			TakerOrderID: 2,
			TakerSide:    domain.OrderSideBid,
			Price:        domain.MustPrice("101.25"),
			Size:         int64(seq),
		},
	}
}

func collect(t *testing.T, j *Journal, pair domain.TradingPair, after uint64) []domain.Event {
	t.Helper()
	var out []domain.Event
	if err := j.Replay(pair, after, func(e domain.Event) error {
		out = append(out, e)
		return nil
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	return out
}

func TestJournal_ReplayInSeqOrder(t *testing.T) {
	j := openTest(t)

	// 256 sorts before 2 as text; big-endian keys must keep numeric order.
	if err := j.Publish([]domain.Event{tradeEvent(btc, 2), tradeEvent(btc, 256)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := j.Publish([]domain.Event{tradeEvent(btc, 1), tradeEvent(eth, 1)}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := collect(t, j, btc, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 btc events, got %d", len(got))
	}
	for i, want := range []uint64{1, 2, 256} {
		if got[i].Seq != want {
			t.Errorf("event %d: expected seq %d, got %d", i, want, got[i].Seq)
		}
	}
	if got[0].Fill == nil || got[0].Fill.Price != domain.MustPrice("101.25") || got[0].Pair != btc {
		t.Errorf("event did not survive encoding: %+v", got[0])
	}

	if got := collect(t, j, btc, 2); len(got) != 1 || got[0].Seq != 256 {
		t.Errorf("expected only seq 256 after 2, got %v", got)
	}
	if got := collect(t, j, eth, 0); len(got) != 1 {
		t.Errorf("expected 1 eth event, got %d", len(got))
	}
}

func TestJournal_LastSeq(t *testing.T) {
	j := openTest(t)

	seq, err := j.LastSeq(btc)
	if err != nil || seq != 0 {
		t.Fatalf("expected 0 on empty journal, got %d err=%v", seq, err)
	}

	_ = j.Publish([]domain.Event{tradeEvent(btc, 1), tradeEvent(btc, 7), tradeEvent(eth, 9)})
	seq, err = j.LastSeq(btc)
	if err != nil || seq != 7 {
		t.Errorf("expected 7, got %d err=%v", seq, err)
	}
}

func TestJournal_ReplayStop(t *testing.T) {
	j := openTest(t)
	_ = j.Publish([]domain.Event{tradeEvent(btc, 1), tradeEvent(btc, 2), tradeEvent(btc, 3)})

	n := 0
	err := j.Replay(btc, 0, func(domain.Event) error {
		n++
		if n == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil on ErrStop, got %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 callbacks, got %d", n)
	}

	boom := errors.New("boom")
	if err := j.Replay(btc, 0, func(domain.Event) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestJournal_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = j.Publish([]domain.Event{tradeEvent(btc, 1)})
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if seq, _ := j.LastSeq(btc); seq != 1 {
		t.Errorf("expected seq 1 after reopen, got %d", seq)
	}
}
