// Package metrics provides Prometheus instrumentation for the forecaster.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ForecastRunsTotal counts dashboard/API pipeline runs by outcome (error kind or "success").
	ForecastRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecaster_runs_total",
		Help: "Total number of forecast pipeline runs",
	}, []string{"outcome"})

	// CacheLookupsTotal counts cache lookups by cache ("model", "dataset") and result ("hit", "miss").
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecaster_cache_lookups_total",
		Help: "Model and dataset cache lookups",
	}, []string{"cache", "result"})

	// CacheEntries tracks the number of cached entries per cache.
	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forecaster_cache_entries",
		Help: "Number of entries held in each cache",
	}, []string{"cache"})

	// LoadDuration tracks artifact deserialization time.
	LoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecaster_load_duration_seconds",
		Help:    "Model and dataset load latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"cache"})

	// InferenceDuration tracks predict latency.
	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forecaster_inference_duration_seconds",
		Help:    "Model predict latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// ForecastHorizonDays records requested horizon lengths.
	ForecastHorizonDays = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forecaster_horizon_days",
		Help:    "Number of days per forecast request",
		Buckets: []float64{1, 7, 14, 30, 60, 90, 180, 366},
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecaster_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecaster_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Route pattern keeps label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveCache records a cache lookup.
func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}
