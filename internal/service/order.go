package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
	"github.com/efreitasn/matchcore/internal/metrics"
	"github.com/efreitasn/matchcore/internal/store"
)

// SubmitOrderRequest is raw order input from a collaborator.
type SubmitOrderRequest struct {
	Pair  string
	Type  domain.OrderType
	Side  domain.OrderSide
	Price *string // required for limit, must be nil for market
	Size  int64
}

// SubmitOrderResult is what a submission produced. Err is set when a
// market order could not be fully filled; the fills still stand.
type SubmitOrderResult struct {
	Pair      domain.TradingPair
	Execution *engine.Execution
	Err       error
}

// OrderService handles order submission, retrieval, cancellation, and listing.
type OrderService struct {
	engine  *engine.MatchingEngine
	orders  *store.OrderStore
	metrics *metrics.Metrics
}

// NewOrderService creates a new OrderService. m may be nil.
func NewOrderService(e *engine.MatchingEngine, orders *store.OrderStore, m *metrics.Metrics) *OrderService {
	return &OrderService{
		engine:  e,
		orders:  orders,
		metrics: m,
	}
}

// SubmitOrder validates the request and runs it through the market's
// matching engine. ErrInsufficientLiquidity is not returned as an error:
// it is reported on the result together with the partial execution.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	pair, err := domain.ParseTradingPair(req.Pair)
	if err != nil {
		return nil, err
	}

	if req.Type != domain.OrderTypeLimit && req.Type != domain.OrderTypeMarket {
		return nil, domain.Invalid(domain.ErrInvalidOrderType,
			fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type))
	}
	if req.Side != domain.OrderSideBid && req.Side != domain.OrderSideAsk {
		return nil, domain.Invalid(domain.ErrInvalidSide, "side must be 'bid' or 'ask'")
	}
	if req.Size <= 0 {
		return nil, domain.Invalid(domain.ErrInvalidSize, "size must be a positive integer")
	}

	var price domain.Price
	switch req.Type {
	case domain.OrderTypeLimit:
		if req.Price == nil {
			return nil, domain.Invalid(domain.ErrInvalidPrice, "price is required for limit orders")
		}
		price, err = domain.ParsePrice(*req.Price)
		if err != nil {
			return nil, domain.Invalid(domain.ErrInvalidPrice,
				fmt.Sprintf("price must be a non-negative decimal with at most %d decimal places", domain.PriceScale))
		}
		if price.IsZero() {
			return nil, domain.Invalid(domain.ErrInvalidPrice, "price must be greater than 0")
		}
	case domain.OrderTypeMarket:
		if req.Price != nil {
			return nil, domain.Invalid(domain.ErrInvalidPrice, "market orders must not include price")
		}
	}

	start := time.Now()
	exec, err := s.engine.Submit(ctx, pair, engine.OrderRequest{
		Side:  req.Side,
		Type:  req.Type,
		Price: price,
		Size:  req.Size,
	})
	if exec == nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSubmit(pair, req.Type, time.Since(start))
	}

	result := &SubmitOrderResult{Pair: pair, Execution: exec}
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientLiquidity) {
			return nil, err
		}
		result.Err = err
	}
	return result, nil
}

// GetOrder returns the lifecycle record of an order on pair.
func (s *OrderService) GetOrder(pairSlug string, orderID uint64) (store.OrderRecord, error) {
	pair, err := resolveMarket(s.engine, pairSlug)
	if err != nil {
		return store.OrderRecord{}, err
	}
	return s.orders.Get(pair, orderID)
}

// CancelOrder removes a resting order and returns it with the size that
// was still open.
func (s *OrderService) CancelOrder(ctx context.Context, pairSlug string, orderID uint64) (*domain.Order, error) {
	pair, err := domain.ParseTradingPair(pairSlug)
	if err != nil {
		return nil, err
	}
	return s.engine.Cancel(ctx, pair, orderID)
}

// ListOrders returns a paginated list of a market's orders, newest first,
// with optional status filtering.
func (s *OrderService) ListOrders(pairSlug string, status *domain.OrderStatus, page, limit int) ([]store.OrderRecord, int, error) {
	pair, err := resolveMarket(s.engine, pairSlug)
	if err != nil {
		return nil, 0, err
	}

	if status != nil && !status.Valid() {
		return nil, 0, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: open, partially_filled, filled, canceled", *status),
		}
	}
	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.orders.ListByPair(pair, status, page, limit)
	return orders, total, nil
}

