package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks reminder processing in the event worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	remindersTotal    *prometheus.CounterVec
	reminderDuration  *prometheus.HistogramVec
	remindersInFlight prometheus.Gauge
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	remindersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appt",
			Subsystem: "worker",
			Name:      "reminders_total",
			Help:      "Total processed booking events by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	reminderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appt",
			Subsystem: "worker",
			Name:      "reminder_duration_seconds",
			Help:      "Booking event handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	remindersInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appt",
			Subsystem: "worker",
			Name:      "reminders_in_flight",
			Help:      "Number of booking events currently being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appt",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between event emission and worker pickup.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(remindersTotal, reminderDuration, remindersInFlight, queueLag)

	return &WorkerMetrics{
		registry:          registry,
		remindersTotal:    remindersTotal,
		reminderDuration:  reminderDuration,
		remindersInFlight: remindersInFlight,
		queueLag:          queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.remindersInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service, kind string, duration time.Duration, err error) {
	m.remindersInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	if kind == "" {
		kind = "unknown"
	}

	m.remindersTotal.WithLabelValues(service, kind, status).Inc()
	m.reminderDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
