package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	ordersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcore_orders_submitted_total",
			Help: "Total number of order commands processed.",
		},
		[]string{"result"},
	)
	tradesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcore_trades_created_total",
			Help: "Total number of trades created.",
		},
		[]string{"symbol"},
	)
	addOrderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchcore_add_order_latency_seconds",
		Help:    "Latency of a single AddOrder call in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	restingOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchcore_resting_orders",
			Help: "Current number of resting orders in the book.",
		},
		[]string{"symbol"},
	)
	bookDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchcore_book_depth",
			Help: "Current number of price levels per side.",
		},
		[]string{"symbol", "side"},
	)
)

// Init registers metrics with the registry once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
			ordersSubmitted,
			tradesCreated,
			addOrderLatency,
			restingOrders,
			bookDepth,
		)
	})
}

// Handler exposes the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncOrdersSubmitted 记录一次命令处理结果（accepted / rejected）
func IncOrdersSubmitted(result string) {
	ordersSubmitted.WithLabelValues(result).Inc()
}

// IncTradesCreated 记录一笔成交
func IncTradesCreated(symbol string) {
	tradesCreated.WithLabelValues(symbol).Inc()
}

// ObserveAddOrderLatency 记录一次 AddOrder 耗时
func ObserveAddOrderLatency(d time.Duration) {
	addOrderLatency.Observe(d.Seconds())
}

// SetRestingOrders 更新驻留订单数
func SetRestingOrders(symbol string, n int) {
	restingOrders.WithLabelValues(symbol).Set(float64(n))
}

// SetBookDepth 更新单侧档位数
func SetBookDepth(symbol, side string, levels int) {
	bookDepth.WithLabelValues(symbol, side).Set(float64(levels))
}
