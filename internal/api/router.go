package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"truck-routing-service/internal/api/handlers"
	"truck-routing-service/internal/platform/metrics"
)

// Deps are the handler dependencies assembled by the composition root.
type Deps struct {
	Health    *handlers.HealthHandler
	Customers *handlers.CustomerHandler
	Plans     *handlers.PlanHandler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", d.Health.Check)
	mux.HandleFunc("/customers", d.Customers.List)
	mux.HandleFunc("/customers/locate", d.Customers.Locate)
	mux.HandleFunc("/plans", d.Plans.Plan)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestIDMiddleware(loggingMiddleware(mux))
}
