package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stake ledger metrics collector

const namespace = "stakeledger"

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all ledger metrics
type Collector struct {
	// Ledger operations
	OperationsTotal  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec

	// Custody flows in base units
	StakedTotal   *prometheus.CounterVec
	RewardsTotal  *prometheus.CounterVec
	ReturnedTotal *prometheus.CounterVec
	SpentTotal    *prometheus.CounterVec

	// Pool state
	PoolTVL      *prometheus.GaugeVec
	PoolPending  *prometheus.GaugeVec
	OracleRate   prometheus.Gauge
	LedgerHeight prometheus.Gauge

	// Administrative overrides
	AdminOverrides *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector(prometheus.DefaultRegisterer)
	})
	return collector
}

// NewCollector creates a collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	return newCollector(reg)
}

func newCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{}

	c.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome",
		},
		[]string{"operation", "status"},
	)

	c.OperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_latency_ms",
			Help:      "Ledger operation latency in milliseconds including commit",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		},
		[]string{"operation"},
	)

	c.StakedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "staked_total",
			Help:      "Tokens moved into custody by stake and stake-more",
		},
		[]string{"pool_id"},
	)

	c.RewardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "rewards_total",
			Help:      "Rewards credited by claims, by denom and mode",
		},
		[]string{"denom", "mode"},
	)

	c.ReturnedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "returned_total",
			Help:      "Principal returned by unstake",
		},
		[]string{"pool_id"},
	)

	c.SpentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "custody",
			Name:      "spent_total",
			Help:      "Staked tokens spent on the store",
		},
		[]string{"pool_id"},
	)

	c.PoolTVL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_staked",
			Help:      "Total staked tokens per pool",
		},
		[]string{"pool_id"},
	)

	c.PoolPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_pending",
			Help:      "Deposits awaiting merge per pool",
		},
		[]string{"pool_id"},
	)

	c.OracleRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "rate",
			Help:      "Settlement units per stake token",
		},
	)

	c.LedgerHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "height",
			Help:      "Last committed ledger height",
		},
	)

	c.AdminOverrides = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "overrides_total",
			Help:      "Administrative position overrides by field",
		},
		[]string{"field"},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Ledger events published per channel",
		},
		[]string{"channel"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Total rate limit hits",
		},
		[]string{"limit_type"},
	)

	c.registerAll(reg)

	return c
}

// registerAll registers all metrics with reg
func (c *Collector) registerAll(reg prometheus.Registerer) {
	reg.MustRegister(
		c.OperationsTotal,
		c.OperationLatency,
		c.StakedTotal,
		c.RewardsTotal,
		c.ReturnedTotal,
		c.SpentTotal,
		c.PoolTVL,
		c.PoolPending,
		c.OracleRate,
		c.LedgerHeight,
		c.AdminOverrides,
		c.WSConnectionsActive,
		c.WSMessagesTotal,
		c.APIRequestsTotal,
		c.APIRequestLatency,
		c.RateLimitHits,
	)
}

// ============ Recording Helpers ============

// RecordOperation records the outcome and latency of a ledger operation
func (c *Collector) RecordOperation(operation string, err error, latencyMs float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.OperationsTotal.WithLabelValues(operation, status).Inc()
	c.OperationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStaked records tokens moved into custody for a pool
func (c *Collector) RecordStaked(poolID string, amount float64) {
	c.StakedTotal.WithLabelValues(poolID).Add(amount)
}

// RecordReward records a claimed reward
func (c *Collector) RecordReward(denom, mode string, amount float64) {
	c.RewardsTotal.WithLabelValues(denom, mode).Add(amount)
}

// RecordReturned records principal returned by unstake
func (c *Collector) RecordReturned(poolID string, amount float64) {
	c.ReturnedTotal.WithLabelValues(poolID).Add(amount)
}

// RecordSpent records tokens spent on the store
func (c *Collector) RecordSpent(poolID string, amount float64) {
	c.SpentTotal.WithLabelValues(poolID).Add(amount)
}

// RecordPool updates the pool gauges
func (c *Collector) RecordPool(poolID string, totalStaked, totalPending float64) {
	c.PoolTVL.WithLabelValues(poolID).Set(totalStaked)
	c.PoolPending.WithLabelValues(poolID).Set(totalPending)
}

// RecordRate records the current oracle rate
func (c *Collector) RecordRate(rate float64) {
	c.OracleRate.Set(rate)
}

// RecordHeight records the last committed height
func (c *Collector) RecordHeight(height int64) {
	c.LedgerHeight.Set(float64(height))
}

// RecordAdminOverride records an administrative override
func (c *Collector) RecordAdminOverride(field string) {
	c.AdminOverrides.WithLabelValues(field).Inc()
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordRateLimitHit records a rejected request
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a published WebSocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving the metrics gathered by g
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
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
