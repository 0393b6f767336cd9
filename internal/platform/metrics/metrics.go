package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// PlanningRuns counts solver runs by final state.
	PlanningRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planning_runs_total", Help: "Solver runs by outcome."},
		[]string{"outcome"},
	)
	// Generations counts generations evolved across all runs.
	Generations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_generations_total", Help: "Generations evolved."},
	)
	// BestFitness is the best fitness of the most recent run.
	BestFitness = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "solver_best_fitness", Help: "Best route distance of the last run."},
	)

	// DistanceLookups counts oracle lookups by result: hit, miss, failure, penalty.
	DistanceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_lookups_total", Help: "Distance oracle lookups by result."},
		[]string{"result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry exactly once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanningRuns)
		Registry.MustRegister(Generations)
		Registry.MustRegister(BestFitness)
		Registry.MustRegister(DistanceLookups)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
