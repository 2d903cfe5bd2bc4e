// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mess_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mess_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// AttendanceMarks counts meal flags written, by meal and taken/not taken.
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mess_attendance_marks_total",
		Help: "Attendance meal flags written.",
	}, []string{"meal", "taken"})

	// GuardRejections counts mutations refused because one was in flight.
	GuardRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mess_guard_rejections_total",
		Help: "Attendance updates rejected while another was in flight.",
	})

	// LoginFailures counts failed sign-ins by role.
	LoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mess_login_failures_total",
		Help: "Failed sign-in attempts.",
	}, []string{"role"})

	// ReportCache counts daily summary cache lookups by result.
	ReportCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mess_report_cache_total",
		Help: "Daily summary cache lookups.",
	}, []string{"result"})

	// EventsHandled counts queue events processed by the worker.
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mess_events_handled_total",
		Help: "Queue events processed by the worker.",
	}, []string{"type"})

	// LeaveReturns counts students moved back to Active by the leave sweep.
	LeaveReturns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mess_leave_returns_total",
		Help: "Students returned from leave by the scheduled sweep.",
	})
)

// MarkAttendance records one written meal flag.
func MarkAttendance(meal string, taken bool) {
	AttendanceMarks.WithLabelValues(meal, strconv.FormatBool(taken)).Inc()
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
