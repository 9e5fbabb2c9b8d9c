// Package metrics exposes matching activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/efreitasn/matchcore/internal/domain"
)

const namespace = "matchcore"

// Metrics holds every collector. Counters are driven by the event stream
// through Publish; gauges are set by the Sampler.
type Metrics struct {
	OrdersAccepted *prometheus.CounterVec
	OrdersCanceled *prometheus.CounterVec
	Trades         *prometheus.CounterVec
	TradedVolume   *prometheus.CounterVec
	SubmitLatency  *prometheus.HistogramVec

	BestBid       *prometheus.GaugeVec
	BestAsk       *prometheus.GaugeVec
	Spread        *prometheus.GaugeVec
	PriceLevels   *prometheus.GaugeVec
	RestingOrders *prometheus.GaugeVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_accepted_total",
			Help:      "Orders that passed validation and entered matching.",
		}, []string{"pair", "side", "type"}),
		OrdersCanceled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_canceled_total",
			Help:      "Orders removed without trading their remainder.",
		}, []string{"pair", "reason"}),
		Trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed fills.",
		}, []string{"pair"}),
		TradedVolume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_volume_total",
			Help:      "Sum of executed fill sizes.",
		}, []string{"pair"}),
		SubmitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_latency_seconds",
			Help:      "Time from submit call to execution result.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
		}, []string{"pair", "type"}),
		BestBid: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_bid_price",
			Help:      "Highest resting bid, absent when the side is empty.",
		}, []string{"pair"}),
		BestAsk: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_ask_price",
			Help:      "Lowest resting ask, absent when the side is empty.",
		}, []string{"pair"}),
		Spread: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spread",
			Help:      "Best ask minus best bid when both sides are present.",
		}, []string{"pair"}),
		PriceLevels: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_levels",
			Help:      "Distinct price levels per side.",
		}, []string{"pair", "side"}),
		RestingOrders: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders resting on the book.",
		}, []string{"pair"}),
	}
}

// Publish counts a batch of events. It never fails.
func (m *Metrics) Publish(events []domain.Event) error {
	for _, e := range events {
		pair := e.Pair.String()
		switch e.Type {
		case domain.EventOrderAccepted:
			m.OrdersAccepted.WithLabelValues(pair, string(e.Accepted.Side), string(e.Accepted.Type)).Inc()
		case domain.EventOrderCanceled:
			m.OrdersCanceled.WithLabelValues(pair, e.Canceled.Reason).Inc()
		case domain.EventTradeExecuted:
			m.Trades.WithLabelValues(pair).Inc()
			m.TradedVolume.WithLabelValues(pair).Add(float64(e.Fill.Size))
		}
	}
	return nil
}

// ObserveSubmit records how long one submission took.
func (m *Metrics) ObserveSubmit(pair domain.TradingPair, orderType domain.OrderType, d time.Duration) {
	m.SubmitLatency.WithLabelValues(pair.String(), string(orderType)).Observe(d.Seconds())
}
