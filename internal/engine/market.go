package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/efreitasn/matchcore/internal/domain"
)

// TopOfBook summarizes the extremes and size of a book.
type TopOfBook struct {
	BestBid   *domain.Price
	BestAsk   *domain.Price
	BidLevels int
	AskLevels int
	Orders    int
}

// Market owns one OrderBook and is its only writer. Every operation is
// sent as a command to a single worker goroutine, which runs commands in
// arrival order and publishes the resulting events before taking the
// next one. Once a call returns, its effect on the book is final.
type Market struct {
	pair    domain.TradingPair
	book    *OrderBook
	cmds    chan func()
	stopped chan struct{}
	sink    EventSink
	logger  *slog.Logger

	seq uint64 // last event sequence; worker only
}

func newMarket(pair domain.TradingPair, book *OrderBook, buffer int, sink EventSink, logger *slog.Logger) *Market {
	return &Market{
		pair:    pair,
		book:    book,
		cmds:    make(chan func(), buffer),
		stopped: make(chan struct{}),
		sink:    sink,
		logger:  logger.With(slog.String("pair", pair.String())),
	}
}

// run processes commands until ctx is cancelled.
func (m *Market) run(ctx context.Context) {
	defer close(m.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.cmds:
			cmd()
		}
	}
}

// Pair returns the market's trading pair.
func (m *Market) Pair() domain.TradingPair {
	return m.pair
}

// Command claim states. A queued command is run by the worker or
// abandoned by its caller, never both.
const (
	cmdQueued int32 = iota
	cmdRunning
	cmdAbandoned
)

// do runs fn on the worker and waits for it. A nil error means fn ran.
// When ctx ends or the engine stops first, do returns that error only if
// it could withdraw the command before the worker claimed it; fn then
// never runs. Once claimed, fn runs to completion and do waits for it.
func (m *Market) do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var state atomic.Int32
	done := make(chan struct{})
	cmd := func() {
		if !state.CompareAndSwap(cmdQueued, cmdRunning) {
			return
		}
		defer close(done)
		fn()
	}

	select {
	case m.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return domain.ErrEngineClosed
	}

	var err error
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-m.stopped:
		err = domain.ErrEngineClosed
	}
	if state.CompareAndSwap(cmdQueued, cmdAbandoned) {
		return err
	}
	<-done
	return nil
}

// publish numbers events and hands them to the sink. Sink failures are
// logged and do not undo the book change.
func (m *Market) publish(events []domain.Event) {
	if len(events) == 0 {
		return
	}
	for i := range events {
		m.seq++
		events[i].Seq = m.seq
	}
	if m.sink == nil {
		return
	}
	if err := m.sink.Publish(events); err != nil {
		m.logger.Warn("event sink failed",
			slog.Uint64("first_seq", events[0].Seq),
			slog.Uint64("last_seq", events[len(events)-1].Seq),
			slog.String("error", err.Error()),
		)
	}
}

// Submit matches an order against the book.
func (m *Market) Submit(ctx context.Context, req OrderRequest) (*Execution, error) {
	var (
		exec   *Execution
		result error
	)
	err := m.do(ctx, func() {
		exec, result = m.book.Submit(req)
		if exec != nil {
			m.publish(exec.Events)
			m.logger.Debug("order processed",
				slog.Uint64("order_id", exec.Order.ID),
				slog.String("side", string(exec.Order.Side)),
				slog.String("type", string(exec.Order.Type)),
				slog.String("outcome", string(exec.Outcome)),
				slog.Int("fills", len(exec.Fills)),
			)
		}
	})
	if err != nil {
		return nil, err
	}
	return exec, result
}

// Cancel removes a resting order.
func (m *Market) Cancel(ctx context.Context, id uint64) (*domain.Order, error) {
	var (
		order  *domain.Order
		result error
	)
	err := m.do(ctx, func() {
		var events []domain.Event
		order, events, result = m.book.Cancel(id)
		m.publish(events)
	})
	if err != nil {
		return nil, err
	}
	return order, result
}

// Order looks up a resting order.
func (m *Market) Order(ctx context.Context, id uint64) (domain.Order, error) {
	var (
		order  domain.Order
		result error
	)
	err := m.do(ctx, func() {
		order, result = m.book.Order(id)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, result
}

// Snapshot returns a consistent depth-limited view of the book.
func (m *Market) Snapshot(ctx context.Context, depth int) (Snapshot, error) {
	var snap Snapshot
	err := m.do(ctx, func() {
		snap = m.book.Snapshot(depth)
		snap.LastSeq = m.seq
	})
	return snap, err
}

// Quote simulates a market order without touching the book.
func (m *Market) Quote(ctx context.Context, side domain.OrderSide, size int64) (*QuoteResult, error) {
	var (
		quote  *QuoteResult
		result error
	)
	err := m.do(ctx, func() {
		quote, result = m.book.Quote(side, size)
	})
	if err != nil {
		return nil, err
	}
	return quote, result
}

// Top returns best prices and level counts.
func (m *Market) Top(ctx context.Context) (TopOfBook, error) {
	var top TopOfBook
	err := m.do(ctx, func() {
		if p, ok := m.book.BestBid(); ok {
			top.BestBid = &p
		}
		if p, ok := m.book.BestAsk(); ok {
			top.BestAsk = &p
		}
		top.BidLevels = m.book.LevelCount(domain.OrderSideBid)
		top.AskLevels = m.book.LevelCount(domain.OrderSideAsk)
		top.Orders = m.book.Len()
	})
	return top, err
}
