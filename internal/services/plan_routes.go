package services

import (
	"context"
	"fmt"
	"time"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

type PlanRoutesRequest struct {
	Depot    domain.Stop
	DepartAt time.Time
	Solver   SolverConfig

	// SolveTimeout bounds evolution only; when it fires the run converges on
	// the last complete generation and scheduling still happens.
	SolveTimeout time.Duration
}

type PlanRoutesResult struct {
	Catalog domain.Catalog
	Result  *Result
	Plans   []domain.RoutePlan
}

// PlanRoutes loads the customers, prepares the catalog, evolves routes and
// renders the fittest one as per-truck schedules.
func PlanRoutes(
	ctx context.Context,
	req PlanRoutesRequest,
	repo ports.StopRepository,
	provider ports.DistanceProvider,
) (*PlanRoutesResult, error) {
	stops, err := repo.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan routes: list stops: %w", err)
	}

	catalog, err := PrepareCatalog(ctx, req.Depot, stops, provider)
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	solveCtx := ctx
	if req.SolveTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, req.SolveTimeout)
		defer cancel()
	}

	res, err := Solve(solveCtx, req.Solver, catalog, provider)
	if err != nil {
		return nil, fmt.Errorf("plan routes: solve: %w", err)
	}

	plans, err := BuildSchedule(ctx, res.Best, req.Depot.Location, req.DepartAt, provider, req.Solver.ReturnToDepot)
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	return &PlanRoutesResult{Catalog: catalog, Result: res, Plans: plans}, nil
}
