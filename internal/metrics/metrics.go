// Package metrics holds the Prometheus instruments for solves.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JPFrancoia/scipy/optimize/zeros"
)

var (
	// solveTotal counts finished solves by method and status flag
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rootfind_solve_total",
		Help: "Total solves by method and status",
	}, []string{"method", "status"})

	// solveDuration tracks wall time per solve
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rootfind_solve_duration_seconds",
		Help:    "Solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"method"})

	// solveFuncCalls tracks callback invocations per solve
	solveFuncCalls = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rootfind_solve_funcalls",
		Help:    "Callback invocations per solve",
		Buckets: []float64{2, 5, 10, 20, 50, 100, 200},
	}, []string{"method"})

	// runsActive is the number of streamed runs in flight
	runsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rootfind_runs_active",
		Help: "Streamed runs currently solving",
	})

	// runsStopped counts streamed runs abandoned before the solver finished
	runsStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rootfind_runs_stopped_total",
		Help: "Streamed runs stopped by the client",
	})
)

// Observe records one finished solve.
func Observe(res zeros.Result, elapsed time.Duration) {
	m := res.Method.String()
	solveTotal.WithLabelValues(m, res.Status.String()).Inc()
	solveDuration.WithLabelValues(m).Observe(elapsed.Seconds())
	solveFuncCalls.WithLabelValues(m).Observe(float64(res.FuncCalls))
}

// RunStarted marks a streamed run as active and returns the func that ends it.
func RunStarted() (done func(stopped bool)) {
	runsActive.Inc()
	return func(stopped bool) {
		runsActive.Dec()
		if stopped {
			runsStopped.Inc()
		}
	}
}
