// Package prometheus exports pool and workload state as Prometheus metrics.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/threadkit/pkg/concurrency"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "threadkit"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds all Prometheus metrics of the toolkit
type Metrics struct {
	// Pool metrics
	PoolQueuedTasks *prometheus.GaugeVec
	PoolWorkers     *prometheus.GaugeVec
	TasksCompleted  *prometheus.CounterVec
	TasksFailed     *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec

	// Workload metrics
	WorkloadWaiting    *prometheus.GaugeVec
	WorkloadProcessing *prometheus.GaugeVec
	WorkloadCompleted  *prometheus.GaugeVec
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		PoolQueuedTasks: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadkit_pool_queued_tasks",
				Help: "Number of tasks waiting in the pool queue",
			},
			[]string{"pool"},
		),
		PoolWorkers: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadkit_pool_workers",
				Help: "Number of pool workers",
			},
			[]string{"pool"},
		),
		TasksCompleted: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadkit_tasks_completed_total",
				Help: "Total number of completed tasks",
			},
			[]string{"pool"},
		),
		TasksFailed: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadkit_tasks_failed_total",
				Help: "Total number of failed tasks",
			},
			[]string{"pool"},
		),
		TaskDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadkit_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pool"},
		),
		WorkloadWaiting: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadkit_workload_waiting",
				Help: "Workload elements waiting to be processed",
			},
			[]string{"workload"},
		),
		WorkloadProcessing: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadkit_workload_processing",
				Help: "Workload elements under processing",
			},
			[]string{"workload"},
		),
		WorkloadCompleted: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadkit_workload_completed",
				Help: "Workload elements completed",
			},
			[]string{"workload"},
		),
	}
}

// ObservePool installs a task observer on the pool that updates the completed
// and failed counters. Call before enqueueing tasks.
func (m *Metrics) ObservePool(pool ObservablePool) {
	name := pool.Name()
	pool.SetTaskObserver(func(err error) {
		if err != nil {
			m.TasksFailed.WithLabelValues(name).Inc()
		} else {
			m.TasksCompleted.WithLabelValues(name).Inc()
		}
	})
}

// ObservablePool is the pool surface the metrics need.
type ObservablePool interface {
	Name() string
	QueueSize() int
	NumThreads() int
	SetTaskObserver(concurrency.TaskObserver)
}
