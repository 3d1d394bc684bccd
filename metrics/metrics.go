package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_transitions_total",
			Help: "Event status transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Scheduler ticks by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	SchedulerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of scheduler ticks",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"job"},
	)

	AutoAssigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_auto_assigned_total",
			Help: "Pending events accepted by the auto-assign scheduler",
		},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_reminders_sent_total",
			Help: "Reminder notifications created by the reminder scheduler",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted by type",
		},
		[]string{"type"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Open websocket connections",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// ObserveTick records the outcome and latency of one scheduler tick.
func ObserveTick(job string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SchedulerRuns.WithLabelValues(job, outcome).Inc()
	SchedulerDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler exposes the default registry.
func Handler() httprouter.Handle {
	h := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
