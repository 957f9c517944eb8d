package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Session lifecycle metrics
	sessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)

	// Remote backend metrics
	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total number of calls to the session backend",
		},
		[]string{"endpoint", "status"},
	)

	backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Duration of backend calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"endpoint"},
	)

	// Reminder metrics
	remindersScheduledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Total number of medication reminders scheduled",
		},
		[]string{"status"},
	)

	remindersPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_purged_total",
			Help: "Total number of expired reminders removed by the sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		sessionTransitionsTotal,
		backendCallsTotal,
		backendCallDuration,
		remindersScheduledTotal,
		remindersPurgedTotal,
	)
}

// RecordSessionTransition records a lifecycle state transition
func RecordSessionTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordBackendCall records a call to the remote session backend
func RecordBackendCall(endpoint, status string, duration time.Duration) {
	backendCallsTotal.WithLabelValues(endpoint, status).Inc()
	backendCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordReminderScheduled records a reminder scheduling attempt
func RecordReminderScheduled(status string) {
	remindersScheduledTotal.WithLabelValues(status).Inc()
}

// RecordRemindersPurged records reminders removed by the purge sweep
func RecordRemindersPurged(count int) {
	remindersPurgedTotal.Add(float64(count))
}

// MetricsHandler returns the prometheus metrics HTTP handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status code for instrumentation
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments HTTP requests with count and duration metrics
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
