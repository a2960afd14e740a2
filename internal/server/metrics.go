package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "critpath"

// Metrics holds the Prometheus collectors for the scheduling service.
type Metrics struct {
	ScheduleRuns     *prometheus.CounterVec
	ScheduleDuration prometheus.Histogram
	TaskRejections   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScheduleRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "schedule_runs_total",
				Help:      "Total number of schedule recomputes by result",
			},
			[]string{"result"},
		),
		ScheduleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "schedule_duration_seconds",
				Help:      "Time spent computing a schedule in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		TaskRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "task_rejections_total",
				Help:      "Total number of rejected task mutations by error code",
			},
			[]string{"reason"},
		),
	}
}
