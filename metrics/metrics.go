package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tupilates",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tupilates",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "allocation",
			Name:      "registrations_total",
			Help:      "Registrations attempted, by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	reservedClasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "allocation",
			Name:      "reserved_classes_total",
			Help:      "Class places reserved by regular registrations.",
		},
	)

	reschedules = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "booking",
			Name:      "reschedules_total",
			Help:      "Reschedules attempted, by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	attendanceUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "attendance",
			Name:      "updates_total",
			Help:      "Attendance rows updated, by resulting status.",
		},
		[]string{"status"},
	)

	unmatchedNames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "attendance",
			Name:      "unmatched_names_total",
			Help:      "Names that could not be resolved against a class roster.",
		},
	)

	generatedInstances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "generator",
			Name:      "instances_total",
			Help:      "Class instances seen by the generator, by result.",
		},
		[]string{"result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tupilates",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs.",
		},
		[]string{"job", "success"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tupilates",
			Subsystem: "scheduler",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		registrations,
		reservedClasses,
		reschedules,
		attendanceUpdates,
		unmatchedNames,
		generatedInstances,
		jobRuns,
		jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}

func RecordRegistration(category string, ok bool, classes int) {
	registrations.WithLabelValues(category, outcome(ok)).Inc()
	if ok && classes > 0 {
		reservedClasses.Add(float64(classes))
	}
}

func RecordReschedule(category string, ok bool) {
	if category == "" {
		category = "unknown"
	}
	reschedules.WithLabelValues(category, outcome(ok)).Inc()
}

func RecordAttendance(status string, updated int) {
	if updated > 0 {
		attendanceUpdates.WithLabelValues(status).Add(float64(updated))
	}
}

func RecordUnmatched(n int) {
	if n > 0 {
		unmatchedNames.Add(float64(n))
	}
}

func RecordGeneration(created, existing int) {
	generatedInstances.WithLabelValues("created").Add(float64(created))
	generatedInstances.WithLabelValues("existing").Add(float64(existing))
}

// RecordJobRun records metrics for scheduled job executions.
func RecordJobRun(job string, duration time.Duration, success bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}
