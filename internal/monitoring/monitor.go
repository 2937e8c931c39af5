package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	VotesCast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_votes_total",
			Help: "Votes applied by the vote ledger, by subject kind and outcome",
		},
		[]string{"subject", "outcome"},
	)

	Acceptances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_acceptances_total",
			Help: "Accept transitions, by result",
		},
		[]string{"result"},
	)

	AnswerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_answer_events_total",
			Help: "Answer count synchronizer events",
		},
		[]string{"event"},
	)

	ReconcileRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_reconcile_repairs_total",
			Help: "Rows repaired by the counter reconciler",
		},
		[]string{"kind"},
	)

	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_notification_failures_total",
			Help: "Notification side effects that failed and were skipped",
		},
		[]string{"stage"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			VotesCast,
			Acceptances,
			AnswerEvents,
			ReconcileRepairs,
			NotificationFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
