package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/sequence"
)

// Options configures a MatchingEngine. Zero values get defaults.
type Options struct {
	// CommandBuffer is the per-market command queue depth.
	CommandBuffer int
	// Sink receives every market's events. May be nil.
	Sink EventSink
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
	// ResumeSeq, when set, returns the last event Seq already recorded
	// for a pair. A new market continues numbering after it.
	ResumeSeq func(domain.TradingPair) (uint64, error)
}

// MatchingEngine routes commands to one Market per trading pair. It holds
// no matching logic itself. Markets share an id sequencer, so order ids
// are unique across the engine.
type MatchingEngine struct {
	mu      sync.RWMutex
	markets map[domain.TradingPair]*Market
	closed  bool

	ids    *sequence.Sequencer
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMatchingEngine creates an engine with no markets.
func NewMatchingEngine(opts Options) *MatchingEngine {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MatchingEngine{
		markets: make(map[domain.TradingPair]*Market),
		ids:     sequence.New(0),
		opts:    opts,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddMarket opens a book for pair and starts its worker. It returns
// ErrMarketAlreadyExists for a duplicate pair.
func (e *MatchingEngine) AddMarket(pair domain.TradingPair) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrEngineClosed
	}
	if _, exists := e.markets[pair]; exists {
		return fmt.Errorf("%w: %s", domain.ErrMarketAlreadyExists, pair)
	}

	m := newMarket(pair, NewOrderBook(pair, e.ids), e.opts.CommandBuffer, e.opts.Sink, e.logger)
	if e.opts.ResumeSeq != nil {
		seq, err := e.opts.ResumeSeq(pair)
		if err != nil {
			return fmt.Errorf("resume %s: %w", pair, err)
		}
		m.seq = seq
	}
	e.markets[pair] = m

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		m.run(e.ctx)
	}()

	e.logger.Info("market opened",
		slog.String("pair", pair.String()),
		slog.Uint64("seq", m.seq),
	)
	return nil
}

// Market returns the market for pair or ErrUnknownMarket.
func (e *MatchingEngine) Market(pair domain.TradingPair) (*Market, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, domain.ErrEngineClosed
	}
	m, ok := e.markets[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMarket, pair)
	}
	return m, nil
}

// Markets lists open pairs sorted by their string form.
func (e *MatchingEngine) Markets() []domain.TradingPair {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pairs := make([]domain.TradingPair, 0, len(e.markets))
	for p := range e.markets {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})
	return pairs
}

// Submit routes an order to its market.
func (e *MatchingEngine) Submit(ctx context.Context, pair domain.TradingPair, req OrderRequest) (*Execution, error) {
	m, err := e.Market(pair)
	if err != nil {
		return nil, err
	}
	return m.Submit(ctx, req)
}

// Cancel routes a cancel to its market.
func (e *MatchingEngine) Cancel(ctx context.Context, pair domain.TradingPair, id uint64) (*domain.Order, error) {
	m, err := e.Market(pair)
	if err != nil {
		return nil, err
	}
	return m.Cancel(ctx, id)
}

// Order looks up a resting order in pair's book.
func (e *MatchingEngine) Order(ctx context.Context, pair domain.TradingPair, id uint64) (domain.Order, error) {
	m, err := e.Market(pair)
	if err != nil {
		return domain.Order{}, err
	}
	return m.Order(ctx, id)
}

// Snapshot returns up to depth levels per side of pair's book.
func (e *MatchingEngine) Snapshot(ctx context.Context, pair domain.TradingPair, depth int) (Snapshot, error) {
	m, err := e.Market(pair)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(ctx, depth)
}

// Quote simulates a market order on pair.
func (e *MatchingEngine) Quote(ctx context.Context, pair domain.TradingPair, side domain.OrderSide, size int64) (*QuoteResult, error) {
	m, err := e.Market(pair)
	if err != nil {
		return nil, err
	}
	return m.Quote(ctx, side, size)
}

// Top returns best bid/ask and level counts for pair.
func (e *MatchingEngine) Top(ctx context.Context, pair domain.TradingPair) (TopOfBook, error) {
	m, err := e.Market(pair)
	if err != nil {
		return TopOfBook{}, err
	}
	return m.Top(ctx)
}

// Close stops every market worker and waits for them to exit. Commands
// already running finish first. Later calls return ErrEngineClosed.
func (e *MatchingEngine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.logger.Info("matching engine stopped")
}
