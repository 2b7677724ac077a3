// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlgate_queries_submitted_total",
		Help: "Total query submissions, by target server and outcome status",
	}, []string{"server", "status"})
	queriesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlgate_queries_rejected_total",
		Help: "Query submissions rejected before execution, by error kind",
	}, []string{"kind"})
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sqlgate_query_duration_seconds",
		Help:    "Backend execution time of whitelisted queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"server"})
	approvalsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sqlgate_approvals_pending",
		Help: "Number of queries currently awaiting approval",
	})
	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlgate_rate_limited_total",
		Help: "Submissions rejected by the sliding-window rate limiter",
	})
	poolOpenConns = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sqlgate_pool_open_connections",
		Help: "Open connections in the backend pool, per server",
	}, []string{"server"})
	poolIdleConns = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sqlgate_pool_idle_connections",
		Help: "Idle connections in the backend pool, per server",
	}, []string{"server"})
)

func init() {
	prometheus.MustRegister(
		queriesSubmitted,
		queriesRejected,
		queryDuration,
		approvalsPending,
		rateLimited,
		poolOpenConns,
		poolIdleConns,
	)
}

// Observer records gateway events into Prometheus metrics.
type Observer struct{}

func NewObserver() *Observer {
	return &Observer{}
}

// QuerySubmitted records a submission outcome (success, rejected,
// pending_approval, auto_approved, error) against a server alias.
func (o *Observer) QuerySubmitted(server, status string) {
	queriesSubmitted.WithLabelValues(server, status).Inc()
}

// QueryRejected records a pre-execution rejection by error kind.
func (o *Observer) QueryRejected(kind string) {
	queriesRejected.WithLabelValues(kind).Inc()
}

// QueryExecuted records the backend execution time in seconds.
func (o *Observer) QueryExecuted(server string, seconds float64) {
	queryDuration.WithLabelValues(server).Observe(seconds)
}

// SetPendingApprovals sets the pending-approval queue depth gauge.
func (o *Observer) SetPendingApprovals(n int) {
	approvalsPending.Set(float64(n))
}

// RateLimited counts a sliding-window rejection.
func (o *Observer) RateLimited() {
	rateLimited.Inc()
}

// SetPoolStats exports database/sql pool stats for one server.
func (o *Observer) SetPoolStats(server string, stats sql.DBStats) {
	poolOpenConns.WithLabelValues(server).Set(float64(stats.OpenConnections))
	poolIdleConns.WithLabelValues(server).Set(float64(stats.Idle))
}
