// Package monitoring exposes Prometheus metrics for the HTTP API and for
// quiz activity.
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tutorly"

// Metrics owns a registry and every collector registered on it. It
// satisfies session.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	violations      *prometheus.CounterVec
	flagged         prometheus.Counter
	failures        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "path"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quiz_submissions_total",
				Help:      "Scored submissions by variant, trigger and outcome",
			},
			[]string{"variant", "trigger", "passed"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exam_violations_total",
				Help:      "Counted secure exam violations",
			},
			[]string{"kind"},
		),
		flagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exam_flagged_total",
			Help:      "Secure exams flagged for misconduct",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persistence_failures_total",
				Help:      "Background writes that failed",
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.submissions,
		m.violations,
		m.flagged,
		m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for tests and for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Submission(variant, trigger string, passed bool) {
	m.submissions.WithLabelValues(variant, trigger, strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) Violation(kind string) {
	m.violations.WithLabelValues(kind).Inc()
}

func (m *Metrics) Flagged() {
	m.flagged.Inc()
}

func (m *Metrics) PersistenceFailure(op string) {
	m.failures.WithLabelValues(op).Inc()
}

// Middleware records request counts and latency keyed by route pattern.
// Unmatched routes share the "unmatched" path label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
