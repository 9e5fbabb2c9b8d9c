package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
)

// BookSource is the read side of the engine the sampler needs.
type BookSource interface {
	Markets() []domain.TradingPair
	Top(ctx context.Context, pair domain.TradingPair) (engine.TopOfBook, error)
}

// Sampler periodically copies top-of-book state into gauges.
type Sampler struct {
	interval time.Duration
	source   BookSource
	metrics  *Metrics
	logger   *slog.Logger
}

// NewSampler creates a Sampler. It does nothing until Start.
func NewSampler(interval time.Duration, source BookSource, m *Metrics, logger *slog.Logger) *Sampler {
	return &Sampler{
		interval: interval,
		source:   source,
		metrics:  m,
		logger:   logger,
	}
}

// Start launches a background goroutine that samples at the configured
// interval. It stops when ctx is cancelled.
func (s *Sampler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// tick samples every market once. A market that fails to answer keeps
// its previous values.
func (s *Sampler) tick(ctx context.Context) {
	for _, pair := range s.source.Markets() {
		top, err := s.source.Top(ctx, pair)
		if err != nil {
			s.logger.Warn("book sample failed",
				slog.String("pair", pair.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.record(pair.String(), top)
	}
}

func (s *Sampler) record(pair string, top engine.TopOfBook) {
	m := s.metrics

	if top.BestBid != nil {
		m.BestBid.WithLabelValues(pair).Set(top.BestBid.Decimal().InexactFloat64())
	} else {
		m.BestBid.DeleteLabelValues(pair)
	}
	if top.BestAsk != nil {
		m.BestAsk.WithLabelValues(pair).Set(top.BestAsk.Decimal().InexactFloat64())
	} else {
		m.BestAsk.DeleteLabelValues(pair)
	}
	if top.BestBid != nil && top.BestAsk != nil {
		spread := top.BestAsk.Decimal().Sub(top.BestBid.Decimal())
		m.Spread.WithLabelValues(pair).Set(spread.InexactFloat64())
	} else {
		m.Spread.DeleteLabelValues(pair)
	}

	m.PriceLevels.WithLabelValues(pair, string(domain.OrderSideBid)).Set(float64(top.BidLevels))
	m.PriceLevels.WithLabelValues(pair, string(domain.OrderSideAsk)).Set(float64(top.AskLevels))
	m.RestingOrders.WithLabelValues(pair).Set(float64(top.Orders))
}
