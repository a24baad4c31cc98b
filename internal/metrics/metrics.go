// Package metrics exports Prometheus instrumentation for solver runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

const namespace = "gradfit"

// Solve outcomes used as the status label.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Recorder implements optimization.Observer on top of Prometheus collectors.
type Recorder struct {
	solves     *prometheus.CounterVec
	iterations *prometheus.CounterVec
	lastCost   *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
}

var _ optimization.Observer = (*Recorder)(nil)

// NewRecorder registers the solver collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Number of finished solves by method and status.",
		}, []string{"method", "status"}),
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Number of solver iterations executed.",
		}, []string{"method"}),
		lastCost: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cost",
			Help:      "Most recently observed objective value.",
		}, []string{"method"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall time of completed solves.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"method"}),
	}
}

// OnProgress implements optimization.Observer.
func (r *Recorder) OnProgress(p optimization.Progress) {
	r.lastCost.WithLabelValues(p.Method).Set(p.Cost)
}

// OnComplete implements optimization.Observer.
func (r *Recorder) OnComplete(res *optimization.Result) {
	r.solves.WithLabelValues(res.Method, StatusCompleted).Inc()
	r.iterations.WithLabelValues(res.Method).Add(float64(res.Iterations))
	r.lastCost.WithLabelValues(res.Method).Set(res.Cost)
	r.duration.WithLabelValues(res.Method).Observe(res.Elapsed.Seconds())
}

// SolveFailed counts a solve that ended with an error or was cancelled.
func (r *Recorder) SolveFailed(method, status string) {
	r.solves.WithLabelValues(method, status).Inc()
}
