package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Matching engine metrics
	OrdersAccepted  prometheus.Counter
	OrdersRejected  *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	OrdersModified  prometheus.Counter
	BookSize        *prometheus.GaugeVec
	BookLevels      *prometheus.GaugeVec

	// Trade metrics
	TradesTotal prometheus.Counter
	TradeVolume *prometheus.CounterVec

	// WebSocket metrics
	WSConnections  prometheus.Gauge
	WSMessagesSent *prometheus.CounterVec

	// RabbitMQ metrics
	MQMessagesPublished *prometheus.CounterVec
	MQMessagesConsumed  *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		OrdersAccepted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_accepted_total",
				Help: "Total number of orders admitted to a book",
			},
		),
		OrdersRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_rejected_total",
				Help: "Total number of orders rejected before admission",
			},
			[]string{"reason"},
		),
		OrdersCancelled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_cancelled_total",
				Help: "Total number of orders cancelled",
			},
		),
		OrdersModified: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_modified_total",
				Help: "Total number of orders modified",
			},
		),
		BookSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "book_resting_orders",
				Help: "Number of live resting orders per book",
			},
			[]string{"symbol"},
		),
		BookLevels: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "book_price_levels",
				Help: "Number of occupied price levels per book side",
			},
			[]string{"symbol", "side"},
		),

		TradesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trades_total",
				Help: "Total number of trades executed",
			},
		),
		TradeVolume: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_volume_total",
				Help: "Total matched quantity by symbol",
			},
			[]string{"symbol"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ws_connections_active",
				Help: "Current number of active WebSocket connections",
			},
		),
		WSMessagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_messages_sent_total",
				Help: "Total number of WebSocket messages sent",
			},
			[]string{"symbol", "type"},
		),

		MQMessagesPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mq_messages_published_total",
				Help: "Total number of messages published to RabbitMQ",
			},
			[]string{"exchange", "routing_key"},
		),
		MQMessagesConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mq_messages_consumed_total",
				Help: "Total number of messages consumed from RabbitMQ",
			},
			[]string{"queue"},
		),

		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
		),
	}
}

// RecordOrderAccepted records an admitted order.
func (m *Metrics) RecordOrderAccepted(symbol string, bookSize int) {
	m.OrdersAccepted.Inc()
	m.BookSize.WithLabelValues(symbol).Set(float64(bookSize))
}

// RecordOrderRejected records a pre-admission rejection.
func (m *Metrics) RecordOrderRejected(reason string) {
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

// RecordOrderCancelled records a cancellation.
func (m *Metrics) RecordOrderCancelled(symbol string, bookSize int) {
	m.OrdersCancelled.Inc()
	m.BookSize.WithLabelValues(symbol).Set(float64(bookSize))
}

// RecordOrderModified records a modify (cancel + resubmit).
func (m *Metrics) RecordOrderModified() {
	m.OrdersModified.Inc()
}

// RecordTrade records one executed trade.
func (m *Metrics) RecordTrade(symbol string, quantity uint64) {
	m.TradesTotal.Inc()
	m.TradeVolume.WithLabelValues(symbol).Add(float64(quantity))
}

// RecordDepth records the current level counts for a book.
func (m *Metrics) RecordDepth(symbol string, bidLevels, askLevels int) {
	m.BookLevels.WithLabelValues(symbol, "bid").Set(float64(bidLevels))
	m.BookLevels.WithLabelValues(symbol, "ask").Set(float64(askLevels))
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordWSSent records a WebSocket message sent.
func (m *Metrics) RecordWSSent(symbol, msgType string) {
	m.WSMessagesSent.WithLabelValues(symbol, msgType).Inc()
}

// RecordWSConnect tracks a WebSocket client connecting.
func (m *Metrics) RecordWSConnect() {
	m.WSConnections.Inc()
}

// RecordWSDisconnect tracks a WebSocket client disconnecting.
func (m *Metrics) RecordWSDisconnect() {
	m.WSConnections.Dec()
}

// RecordMQPublished records a message published to the broker.
func (m *Metrics) RecordMQPublished(exchange, routingKey string) {
	m.MQMessagesPublished.WithLabelValues(exchange, routingKey).Inc()
}

// RecordMQConsumed records a message consumed from a queue.
func (m *Metrics) RecordMQConsumed(queue string) {
	m.MQMessagesConsumed.WithLabelValues(queue).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}
