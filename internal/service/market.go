package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
	"github.com/efreitasn/matchcore/internal/store"
)

// PriceResponse is a market's reference price.
type PriceResponse struct {
	Pair           domain.TradingPair
	CurrentPrice   *decimal.Decimal // nil when no trades ever
	Window         string           // e.g. "5m"
	TradesInWindow int
	LastTradeAt    *time.Time // nil when no trades ever
}

// BookResponse is a depth-limited view of one market's book.
type BookResponse struct {
	Pair       domain.TradingPair
	Bids       []engine.PriceLevel
	Asks       []engine.PriceLevel
	Spread     *decimal.Decimal // nil if either side empty
	LastSeq    uint64
	SnapshotAt time.Time
}

// QuoteResponse is the simulated result of a market order.
type QuoteResponse struct {
	Pair              domain.TradingPair
	Side              domain.OrderSide
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice *decimal.Decimal // nil when no liquidity
	EstimatedTotal    *decimal.Decimal // nil when no liquidity
	PriceLevels       []engine.QuotePriceLevel
	QuotedAt          time.Time
}

// TradesResponse is a market's most recent trades.
type TradesResponse struct {
	Pair   domain.TradingPair
	Trades []domain.Fill // newest first
}

// EventsResponse is a page of a market's event stream.
type EventsResponse struct {
	Pair    domain.TradingPair
	Events  []domain.Event
	LastSeq uint64
	// Truncated is set when events after the requested seq were already
	// evicted from the log.
	Truncated bool
}

// MarketConfig bounds market queries.
type MarketConfig struct {
	DefaultDepth int
	MaxDepth     int
	VWAPWindow   time.Duration
}

// MarketService handles market creation and read-only market queries.
type MarketService struct {
	engine *engine.MatchingEngine
	events *store.EventLog
	cfg    MarketConfig
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(e *engine.MatchingEngine, events *store.EventLog, cfg MarketConfig) *MarketService {
	return &MarketService{
		engine: e,
		events: events,
		cfg:    cfg,
	}
}

// CreateMarket opens a new market.
func (s *MarketService) CreateMarket(base, quote string) (domain.TradingPair, error) {
	pair, err := domain.NewTradingPair(base, quote)
	if err != nil {
		return domain.TradingPair{}, err
	}
	if err := s.engine.AddMarket(pair); err != nil {
		return domain.TradingPair{}, err
	}
	return pair, nil
}

// ListMarkets returns every open market.
func (s *MarketService) ListMarkets() []domain.TradingPair {
	return s.engine.Markets()
}

// GetBook returns the top depth price levels of a market. A nil depth
// means the configured default.
func (s *MarketService) GetBook(ctx context.Context, pairSlug string, depth *int) (*BookResponse, error) {
	pair, err := domain.ParseTradingPair(pairSlug)
	if err != nil {
		return nil, err
	}

	n := s.cfg.DefaultDepth
	if depth != nil {
		n = *depth
	}
	if n < 1 || n > s.cfg.MaxDepth {
		return nil, domain.Invalid(domain.ErrInvalidSize,
			fmt.Sprintf("depth must be between 1 and %d", s.cfg.MaxDepth))
	}

	snap, err := s.engine.Snapshot(ctx, pair, n)
	if err != nil {
		return nil, err
	}

	resp := &BookResponse{
		Pair:       pair,
		Bids:       snap.Bids,
		Asks:       snap.Asks,
		LastSeq:    snap.LastSeq,
		SnapshotAt: time.Now(),
	}

	// Compute spread = best_ask - best_bid (null if either side empty).
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		spread := snap.Asks[0].Price.Decimal().Sub(snap.Bids[0].Price.Decimal())
		resp.Spread = &spread
	}

	return resp, nil
}

// GetQuote simulates a market order against the current book and returns
// the estimated result without placing an order.
func (s *MarketService) GetQuote(ctx context.Context, pairSlug string, side domain.OrderSide, quantity int64) (*QuoteResponse, error) {
	pair, err := domain.ParseTradingPair(pairSlug)
	if err != nil {
		return nil, err
	}

	if side != domain.OrderSideBid && side != domain.OrderSideAsk {
		return nil, domain.Invalid(domain.ErrInvalidSide, "side must be 'bid' or 'ask'")
	}
	if quantity <= 0 {
		return nil, domain.Invalid(domain.ErrInvalidSize, "size must be a positive integer")
	}

	result, err := s.engine.Quote(ctx, pair, side, quantity)
	if err != nil {
		return nil, err
	}

	resp := &QuoteResponse{
		Pair:              pair,
		Side:              side,
		QuantityRequested: quantity,
		QuantityAvailable: result.QuantityAvailable,
		FullyFillable:     result.FullyFillable,
		EstimatedAvgPrice: result.AveragePrice,
		PriceLevels:       result.PriceLevels,
		QuotedAt:          time.Now(),
	}
	if result.QuantityAvailable > 0 {
		total := decimal.Zero
		for _, pl := range result.PriceLevels {
			total = total.Add(pl.Price.Decimal().Mul(decimal.NewFromInt(pl.Quantity)))
		}
		resp.EstimatedTotal = &total
	}
	return resp, nil
}

// GetPrice returns the reference price of a market, computed as VWAP over
// the configured time window. Falls back to the last trade's price if no
// trades exist in the window. Returns a nil price if the market never
// traded, or if its trades were all evicted from the log.
func (s *MarketService) GetPrice(pairSlug string) (*PriceResponse, error) {
	pair, err := resolveMarket(s.engine, pairSlug)
	if err != nil {
		return nil, err
	}

	trades := s.events.Trades(pair, 0) // newest first
	now := time.Now()
	windowStart := now.Add(-s.cfg.VWAPWindow)

	resp := &PriceResponse{
		Pair:   pair,
		Window: formatDuration(s.cfg.VWAPWindow),
	}

	if len(trades) == 0 {
		return resp, nil
	}

	lastTrade := trades[0]
	resp.LastTradeAt = &lastTrade.ExecutedAt

	sumPriceQty := decimal.Zero
	var sumQty int64
	var tradesInWindow int

	for _, t := range trades {
		if t.ExecutedAt.Before(windowStart) {
			break
		}
		sumPriceQty = sumPriceQty.Add(t.Price.Decimal().Mul(decimal.NewFromInt(t.Size)))
		sumQty += t.Size
		tradesInWindow++
	}

	resp.TradesInWindow = tradesInWindow

	if sumQty > 0 {
		vwap := sumPriceQty.Div(decimal.NewFromInt(sumQty))
		resp.CurrentPrice = &vwap
	} else {
		last := lastTrade.Price.Decimal()
		resp.CurrentPrice = &last
	}

	return resp, nil
}

// Trades returns a market's most recent trades, newest first.
func (s *MarketService) Trades(pairSlug string, limit int) (*TradesResponse, error) {
	pair, err := resolveMarket(s.engine, pairSlug)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 1000 {
		return nil, domain.Invalid(domain.ErrInvalidSize, "limit must be between 1 and 1000")
	}
	return &TradesResponse{Pair: pair, Trades: s.events.Trades(pair, limit)}, nil
}

// Events returns up to limit events with Seq greater than since.
func (s *MarketService) Events(pairSlug string, since uint64, limit int) (*EventsResponse, error) {
	pair, err := resolveMarket(s.engine, pairSlug)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 1000 {
		return nil, domain.Invalid(domain.ErrInvalidSize, "limit must be between 1 and 1000")
	}

	events := s.events.Since(pair, since, limit)
	resp := &EventsResponse{
		Pair:    pair,
		Events:  events,
		LastSeq: s.events.LastSeq(pair),
	}
	resp.Truncated = s.events.Evicted(pair, since)
	return resp, nil
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
