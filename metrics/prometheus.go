package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all exchange metrics
type Collector struct {
	// Order metrics
	OrdersTotal  *prometheus.CounterVec
	CancelsTotal *prometheus.CounterVec

	// Trade metrics
	TradesTotal *prometheus.CounterVec
	TradeVolume *prometheus.CounterVec

	// Game metrics
	GamesStarted prometheus.Counter
	GamesSettled prometheus.Counter
	RoomsActive  prometheus.Gauge

	// Player metrics
	PlayersRegistered prometheus.Gauge

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec
	CommandsTotal       *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	c.OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "orders",
			Name:      "total",
			Help:      "Total number of orders submitted",
		},
		[]string{"room", "instrument", "direction"},
	)

	c.CancelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "orders",
			Name:      "cancels_total",
			Help:      "Total number of cancel requests",
		},
		[]string{"room", "instrument"},
	)

	c.TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "trades",
			Name:      "total",
			Help:      "Total number of trades executed",
		},
		[]string{"room", "instrument"},
	)

	c.TradeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "trades",
			Name:      "volume",
			Help:      "Total traded size",
		},
		[]string{"room", "instrument"},
	)

	c.GamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "games",
			Name:      "started_total",
			Help:      "Total number of games started",
		},
	)

	c.GamesSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "games",
			Name:      "settled_total",
			Help:      "Total number of games settled",
		},
	)

	c.RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardex",
			Subsystem: "games",
			Name:      "rooms_active",
			Help:      "Number of rooms currently registered",
		},
	)

	c.PlayersRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardex",
			Subsystem: "players",
			Name:      "registered",
			Help:      "Number of registered players",
		},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardex",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages by direction",
		},
		[]string{"direction"},
	)

	c.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Subsystem: "engine",
			Name:      "commands_total",
			Help:      "Total commands processed by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	c.registerAll()

	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	prometheus.MustRegister(c.OrdersTotal)
	prometheus.MustRegister(c.CancelsTotal)
	prometheus.MustRegister(c.TradesTotal)
	prometheus.MustRegister(c.TradeVolume)
	prometheus.MustRegister(c.GamesStarted)
	prometheus.MustRegister(c.GamesSettled)
	prometheus.MustRegister(c.RoomsActive)
	prometheus.MustRegister(c.PlayersRegistered)
	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
	prometheus.MustRegister(c.CommandsTotal)
}

// ============ Recording Helpers ============

// RecordCommand records one processed command and its outcome
func (c *Collector) RecordCommand(cmdType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.CommandsTotal.WithLabelValues(cmdType, outcome).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(direction string) {
	c.WSMessagesTotal.WithLabelValues(direction).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
