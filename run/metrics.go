package run

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the ingestion run.
type Metrics struct {
	Registry          *prometheus.Registry
	TasksTotal        *prometheus.CounterVec
	TaskDuration      prometheus.Histogram
	ImagesTotal       prometheus.Counter
	SyncAttemptsTotal prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	tasks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_tasks_total",
			Help: "Total scrape tasks processed, by outcome.",
		},
		[]string{"outcome"},
	)
	taskDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_task_duration_seconds",
			Help:    "Wall time spent per scrape task.",
			Buckets: prometheus.DefBuckets,
		},
	)
	images := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_images_total",
			Help: "Total images attached to product records.",
		},
	)
	syncAttempts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_sync_attempts_total",
			Help: "Total create/update calls against the commerce API.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_errors_total",
			Help: "Total per-task errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(tasks, taskDuration, images, syncAttempts, errorsTotal)

	return &Metrics{
		Registry:          registry,
		TasksTotal:        tasks,
		TaskDuration:      taskDuration,
		ImagesTotal:       images,
		SyncAttemptsTotal: syncAttempts,
		ErrorsTotal:       errorsTotal,
	}
}

// IncTask increments the task counter for an outcome label.
func (m *Metrics) IncTask(outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(outcome).Inc()
}

// ObserveTask records one task duration.
func (m *Metrics) ObserveTask(d time.Duration) {
	if m == nil {
		return
	}
	m.TaskDuration.Observe(d.Seconds())
}

// AddImages adds to the attached-images counter.
func (m *Metrics) AddImages(n int) {
	if m == nil {
		return
	}
	m.ImagesTotal.Add(float64(n))
}

// IncSyncAttempt increments the commerce call counter.
func (m *Metrics) IncSyncAttempt() {
	if m == nil {
		return
	}
	m.SyncAttemptsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
