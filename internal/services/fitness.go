package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/metrics"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

// Evaluator computes route fitness as total travelled distance.
//
// A failed oracle lookup is retried once; a second failure charges
// PenaltyDistance for that leg and counts it in Route.PenalizedEdges.
// Only context cancellation is returned as an error.
type Evaluator struct {
	Oracle           ports.DistanceProvider
	Depot            domain.Coordinates
	IncludeDepotLegs bool
	ReturnToDepot    bool
	PenaltyDistance  float64
}

func NewEvaluator(oracle ports.DistanceProvider, depot domain.Coordinates, cfg SolverConfig) *Evaluator {
	return &Evaluator{
		Oracle:           oracle,
		Depot:            depot,
		IncludeDepotLegs: cfg.IncludeDepotLegs,
		ReturnToDepot:    cfg.ReturnToDepot,
		PenaltyDistance:  cfg.PenaltyDistance,
	}
}

// Evaluate returns a copy of route with Fitness and PenalizedEdges set.
func (e *Evaluator) Evaluate(ctx context.Context, route domain.Route) (domain.Route, error) {
	total := 0.0
	penalized := 0

	for _, p := range route.Paths {
		d, n, err := e.pathDistance(ctx, p)
		if err != nil {
			return domain.Route{}, err
		}
		total += d
		penalized += n
	}

	route.Fitness = total
	route.PenalizedEdges = penalized
	return route, nil
}

// pathDistance sums consecutive legs. Paths with zero or one stop cost
// nothing unless depot legs are enabled.
func (e *Evaluator) pathDistance(ctx context.Context, p domain.Path) (float64, int, error) {
	if len(p.Stops) == 0 {
		return 0, 0, nil
	}

	total := 0.0
	penalized := 0
	add := func(from, to domain.Coordinates) error {
		d, ok, err := e.leg(ctx, from, to)
		if err != nil {
			return err
		}
		total += d
		if !ok {
			penalized++
		}
		return nil
	}

	if e.IncludeDepotLegs {
		if err := add(e.Depot, p.Stops[0].Location); err != nil {
			return 0, 0, err
		}
	}

	for i := 1; i < len(p.Stops); i++ {
		if err := add(p.Stops[i-1].Location, p.Stops[i].Location); err != nil {
			return 0, 0, err
		}
	}

	if e.ReturnToDepot {
		if err := add(p.Stops[len(p.Stops)-1].Location, e.Depot); err != nil {
			return 0, 0, err
		}
	}

	return total, penalized, nil
}

// leg resolves one distance. ok is false when the penalty was charged.
func (e *Evaluator) leg(ctx context.Context, from, to domain.Coordinates) (float64, bool, error) {
	if from == to {
		return 0, true, nil
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		r, err := e.Oracle.GetDistance(ctx, from, to)
		if err == nil && validDistance(r.DistanceMeters) {
			return r.DistanceMeters, true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}
		if err == nil {
			err = fmt.Errorf("invalid distance %v", r.DistanceMeters)
		}
		lastErr = err
	}

	log.Printf("req_id=%s penalized leg %s -> %s: %v", obs.RequestID(ctx), from.Key(), to.Key(), lastErr)
	metrics.DistanceLookups.WithLabelValues("penalty").Inc()
	return e.PenaltyDistance, false, nil
}

func validDistance(d float64) bool {
	return d >= 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}
