// Package metrics holds the Prometheus collectors of the console.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors exist from package init so packages can record without a
// registry; Register exposes them.
var (
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votedesk_gateway_requests_total",
			Help: "Calls to the voting API, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "votedesk_gateway_request_duration_seconds",
			Help:    "Voting API call duration in seconds, by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	CacheFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votedesk_cache_fetches_total",
			Help: "Sub-resource fetches issued by the panel cache, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votedesk_cache_hits_total",
			Help: "Sub-resource reads served from the panel cache, by kind.",
		},
		[]string{"kind"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "votedesk_sessions_active",
			Help: "Operator sessions currently held in memory.",
		},
	)

	ArchiveJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votedesk_archive_jobs_total",
			Help: "Ticket sheet archive job attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "votedesk_http_request_duration_seconds",
			Help:    "Console HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Register adds every collector to reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		GatewayRequests,
		GatewayDuration,
		CacheFetches,
		CacheHits,
		ActiveSessions,
		ArchiveJobs,
		RequestDuration,
	)
}

// Middleware records request duration per matched gin route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
