package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersAdded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_orders_added_total",
		Help: "Orders accepted into the book.",
	})

	OrdersRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_orders_removed_total",
		Help: "Remove operations applied to the book.",
	})

	TradesMatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_trades_matched_total",
		Help: "Trades produced by the matching loop.",
	})

	TradeVolume = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_trade_volume_total",
		Help: "Total matched quantity.",
	})

	OpLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "book_op_latency_seconds",
		Help:    "Latency of book mutations including WAL append.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	})

	BidLevels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "book_bid_levels",
		Help: "Resting bid price levels.",
	})

	AskLevels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "book_ask_levels",
		Help: "Resting ask price levels.",
	})
)

func InitMetrics() {
	prometheus.MustRegister(OrdersAdded)
	prometheus.MustRegister(OrdersRemoved)
	prometheus.MustRegister(TradesMatched)
	prometheus.MustRegister(TradeVolume)
	prometheus.MustRegister(OpLatency)
	prometheus.MustRegister(BidLevels)
	prometheus.MustRegister(AskLevels)
}
