package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
	"github.com/efreitasn/matchcore/internal/metrics"
	"github.com/efreitasn/matchcore/internal/store"
)

// testEnv bundles all dependencies needed for service tests.
type testEnv struct {
	engine    *engine.MatchingEngine
	events    *store.EventLog
	orders    *store.OrderStore
	metrics   *metrics.Metrics
	orderSvc  *OrderService
	marketSvc *MarketService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	events := store.NewEventLog(100)
	orders := store.NewOrderStore()
	m := metrics.New(prometheus.NewRegistry())
	e := engine.NewMatchingEngine(engine.Options{
		Sink: engine.Sinks{events, orders, m},
	})
	t.Cleanup(e.Close)
	if err := e.AddMarket(domain.MustPair("BTC/USDC")); err != nil {
		t.Fatalf("add market: %v", err)
	}
	return &testEnv{
		engine:   e,
		events:   events,
		orders:   orders,
		metrics:  m,
		orderSvc: NewOrderService(e, orders, m),
		marketSvc: NewMarketService(e, events, MarketConfig{
			DefaultDepth: 10,
			MaxDepth:     50,
			VWAPWindow:   5 * time.Minute,
		}),
	}
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

// submit is a helper that places an order and fails the test on error.
func (env *testEnv) submit(t *testing.T, side domain.OrderSide, price string, size int64) *SubmitOrderResult {
	t.Helper()
	req := SubmitOrderRequest{Pair: "BTC-USDC", Side: side, Size: size}
	if price == "" {
		req.Type = domain.OrderTypeMarket
	} else {
		req.Type = domain.OrderTypeLimit
		req.Price = strPtr(price)
	}
	res, err := env.orderSvc.SubmitOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("submit %s %s@%s: %v", side, price, req.Type, err)
	}
	return res
}

var ctx = context.Background()
