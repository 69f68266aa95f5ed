/*
Package obsmetrics exposes taskforge's Prometheus metrics: task throughput
by exit path, verification durations, sandbox lifecycle counts, and queue
depth. Metrics are package-level so any component can record to them
without threading a registry through constructors.
*/
package obsmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskforge_tasks_total",
			Help: "Total number of tasks processed by exit path",
		},
		[]string{"exit_path"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskforge_task_duration_seconds",
			Help:    "End-to-end task processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"exit_path"},
	)

	VerificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskforge_verification_duration_seconds",
			Help:    "Verification command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cmd", "passed"},
	)

	SandboxRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskforge_sandbox_runs_total",
			Help: "Total number of sandboxed command executions by outcome",
		},
		[]string{"outcome"},
	)

	SecretsDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskforge_secrets_detected_total",
			Help: "Total number of secret-detection incidents",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskforge_queue_depth",
			Help: "Number of tasks currently in each handoff state",
		},
		[]string{"state"},
	)

	WorkerLockHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskforge_worker_lock_held",
			Help: "Whether this process currently holds the worker lock (1 = held)",
		},
	)
)

// Register registers all metrics with the default Prometheus registry.
// It is safe to call once at process start.
func Register() {
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(VerificationDuration)
	prometheus.MustRegister(SandboxRunsTotal)
	prometheus.MustRegister(SecretsDetectedTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(WorkerLockHeld)
}

// Handler returns the Prometheus HTTP handler for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration { return time.Since(t.start) }
